package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/commentcard/card"
)

var sizeOptions = []string{"small", "medium", "large", "xlarge"}

// Index renders the generate form, pre-filled from d.Style. When PreviewURL
// is set the generated card is shown under the form.
func Index(d IndexData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		s := d.Style
		var b strings.Builder
		fmt.Fprintf(&b, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>%s</title>`, esc(d.Site.Name))
		b.WriteString(`<style>body{font-family:system-ui,sans-serif;max-width:760px;margin:2rem auto;padding:0 1rem;color:#111}label{display:block;margin:.5rem 0}fieldset{border:1px solid #ddd;padding:1rem;margin:1rem 0}.error{color:#b00020}.preview img{max-width:100%}</style>`)
		fmt.Fprintf(&b, `</head><body><h1>%s</h1>`, esc(d.Site.Name))
		if d.Error != "" {
			fmt.Fprintf(&b, `<p class="error" role="alert">%s</p>`, esc(d.Error))
		}
		b.WriteString(`<form method="post" action="/generate">`)
		fmt.Fprintf(&b, `<input type="hidden" name="_csrf" value="%s">`, esc(d.CSRFToken))
		fmt.Fprintf(&b, `<label>YouTube comment URL <input type="url" name="url" required value="%s" placeholder="https://www.youtube.com/watch?v=...&amp;lc=..."></label>`, esc(d.URL))

		b.WriteString(`<fieldset><legend>Size</legend><label>Preset <select name="size">`)
		for _, name := range sizeOptions {
			fmt.Fprintf(&b, `<option value="%s"%s>%s (%spx)</option>`, name, selected(s.Size == name), name, num(card.PresetWidth(name)))
		}
		b.WriteString(`</select></label>`)
		fmt.Fprintf(&b, `<label><input type="checkbox" name="autoSize" value="1"%s><input type="hidden" name="autoSize" value="0"> Fit height to the comment</label>`, checked(s.AutoSize))
		fmt.Fprintf(&b, `<label>Width <input type="number" name="width" min="0" value="%s"></label>`, num(s.Width))
		fmt.Fprintf(&b, `<label>Height <input type="number" name="height" min="0" value="%s"></label>`, num(s.Height))
		fmt.Fprintf(&b, `<label>Aspect ratio <input type="number" name="aspectRatio" min="0" step="0.01" value="%s"></label>`, num(s.AspectRatio))
		fmt.Fprintf(&b, `<label>Scale <input type="number" name="scaleFactor" min="1" max="4" step="0.5" value="%s"></label></fieldset>`, num(s.Scale))

		b.WriteString(`<fieldset><legend>Style</legend>`)
		fmt.Fprintf(&b, `<label>Background <input type="color" name="backgroundColor" value="%s"></label>`, esc(s.BackgroundColor))
		fmt.Fprintf(&b, `<label>Text <input type="color" name="textColor" value="%s"></label>`, esc(s.TextColor))
		fmt.Fprintf(&b, `<label>Corner radius <input type="number" name="cardRadius" min="0" value="%s"></label>`, num(s.CardRadius))
		fmt.Fprintf(&b, `<label>Padding <input type="number" name="padding" min="0" value="%s"></label>`, num(s.Padding))
		fmt.Fprintf(&b, `<label>Font size <input type="number" name="fontSize" min="8" max="48" value="%s"></label>`, num(s.FontSize))
		b.WriteString(`<label>Vertical alignment <select name="verticalAlign">`)
		for _, a := range []card.VerticalAlign{card.AlignStart, card.AlignCenter, card.AlignEnd} {
			fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, a, selected(s.VerticalAlign == a), a)
		}
		b.WriteString(`</select></label><label>Date format <select name="dateFormat">`)
		fmt.Fprintf(&b, `<option value="us"%s>MM/DD/YYYY</option><option value="fr"%s>DD/MM/YYYY</option></select></label>`,
			selected(s.DateFormat == card.DateUS), selected(s.DateFormat == card.DateFR))
		fmt.Fprintf(&b, `<label><input type="checkbox" name="showAuthorImage" value="1"%s><input type="hidden" name="showAuthorImage" value="0"> Show author image</label>`, checked(s.ShowAuthorImage))
		fmt.Fprintf(&b, `<label><input type="checkbox" name="showLikeCount" value="1"%s><input type="hidden" name="showLikeCount" value="0"> Show like count</label>`, checked(s.ShowLikeCount))
		b.WriteString(`</fieldset><button type="submit">Generate card</button></form>`)

		if d.PreviewURL != "" {
			fmt.Fprintf(&b, `<section class="preview"><img src="%s" alt="Comment card"><p><a href="%s" download="comment-card.png">Download PNG</a></p></section>`,
				esc(d.PreviewURL), esc(d.PreviewURL))
		}
		b.WriteString(`</body></html>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}
