package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// CardDocument is a standalone HTML page holding one element with class
// "card", sized and styled from d. The page background is transparent so a
// screenshot of the element keeps its rounded corners.
func CardDocument(d CardData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html><head><meta charset="utf-8"><style>`)
		b.WriteString(`*{box-sizing:border-box;margin:0;padding:0}`)
		b.WriteString(`html,body{background:transparent}`)
		b.WriteString(`body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,"Helvetica Neue",Arial,sans-serif;padding:0}`)
		fmt.Fprintf(&b, `.card{width:%s;height:%s;padding:%s;border-radius:%s;background:%s;color:%s;font-size:%s;line-height:%s;display:flex;flex-direction:column;justify-content:%s;overflow:hidden}`,
			px(d.Width), px(d.Height), px(d.Padding), px(d.Radius), esc(d.Background), esc(d.Text), px(d.FontSize), num(d.LineHeight), justify(d.Align))
		fmt.Fprintf(&b, `.header{display:flex;align-items:center;gap:%s;min-height:%s}`, px(d.FontSize*0.75), px(d.HeaderHeight))
		fmt.Fprintf(&b, `.avatar{width:%s;height:%s;border-radius:50%%;object-fit:cover;flex-shrink:0}`, px(d.AvatarSize), px(d.AvatarSize))
		b.WriteString(`.author{font-weight:700}`)
		fmt.Fprintf(&b, `.date{font-size:%s;color:%s}`, px(d.FontSize*0.875), esc(d.Muted))
		fmt.Fprintf(&b, `.body{margin-top:%s;white-space:pre-wrap;overflow-wrap:break-word}`, px(d.Gap))
		fmt.Fprintf(&b, `.footer{margin-top:%s;min-height:%s;display:flex;align-items:center;font-size:%s;color:%s}`,
			px(d.Gap), px(d.FooterHeight), px(d.FontSize*0.875), esc(d.Muted))
		b.WriteString(`</style></head><body><div class="card"><div class="header">`)
		switch {
		case !d.ShowAvatar:
		case d.AvatarURL != "":
			fmt.Fprintf(&b, `<img class="avatar" src="%s" alt="">`, esc(d.AvatarURL))
		default:
			fmt.Fprintf(&b, `<div class="avatar" style="background:%s"></div>`, esc(d.Muted))
		}
		fmt.Fprintf(&b, `<div><div class="author">%s</div><div class="date">%s</div></div></div>`, esc(d.Author), esc(d.Date))
		fmt.Fprintf(&b, `<div class="body">%s</div>`, esc(d.Body))
		if d.ShowLikes {
			fmt.Fprintf(&b, `<div class="footer">&#128077; %s</div>`, esc(d.Likes))
		}
		b.WriteString(`</div></body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
