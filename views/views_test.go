package views

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/eringen/commentcard/card"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	return b.String()
}

func TestCardDocumentEscapesContent(t *testing.T) {
	out := render(t, CardDocument(CardData{
		Width: 600, Height: 200, FontSize: 16, LineHeight: 1.5,
		Background: "#ffffff", Text: "#000000", Muted: "#666666",
		ShowAvatar: true, AvatarURL: `https://x.example/a.jpg?"onerror=`,
		Author: "<b>Ada</b>", Body: "1 < 2\nnext", ShowLikes: true, Likes: "5 likes",
	}))
	if !strings.Contains(out, `class="card"`) {
		t.Fatalf("missing card element")
	}
	if strings.Contains(out, "<b>Ada</b>") {
		t.Fatalf("author not escaped: %s", out)
	}
	if !strings.Contains(out, "1 &lt; 2\nnext") {
		t.Fatalf("body not escaped or line break lost")
	}
	if !strings.Contains(out, "width:600px;height:200px") {
		t.Fatalf("missing size: %s", out)
	}
	if !strings.Contains(out, "5 likes") {
		t.Fatalf("missing footer")
	}
}

func TestCardDocumentHidesOptionalRows(t *testing.T) {
	out := render(t, CardDocument(CardData{Width: 400, Height: 150, AvatarURL: "https://x.example/a.jpg"}))
	if strings.Contains(out, `class="avatar"`) || strings.Contains(out, `<div class="footer">`) {
		t.Fatalf("optional rows rendered: %s", out)
	}
}

func TestCardDocumentAvatarPlaceholder(t *testing.T) {
	out := render(t, CardDocument(CardData{Width: 400, Height: 150, ShowAvatar: true, Muted: "#666666"}))
	if strings.Contains(out, "<img") {
		t.Fatalf("image rendered without a url: %s", out)
	}
	if !strings.Contains(out, `<div class="avatar" style="background:#666666"></div>`) {
		t.Fatalf("missing placeholder: %s", out)
	}
}

func TestIndexPrefillsStyle(t *testing.T) {
	style := card.DefaultStyle()
	style.Size = "large"
	style.ShowLikeCount = false
	style.DateFormat = card.DateFR
	out := render(t, Index(IndexData{Site: SiteConfig{Name: "Cards"}, Style: style, CSRFToken: "tok", Error: "bad <url>"}))

	for _, want := range []string{
		`<option value="large" selected>`,
		`<option value="fr" selected>`,
		`name="showAuthorImage" value="1" checked`,
		`name="_csrf" value="tok"`,
		`bad &lt;url&gt;`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q", want)
		}
	}
	if strings.Contains(out, `name="showLikeCount" value="1" checked`) {
		t.Fatalf("like count should be unchecked")
	}
}
