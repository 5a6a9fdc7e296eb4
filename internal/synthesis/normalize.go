package synthesis

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/intent/internal/model"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DefaultHTML = `<div class="adaptive-ui-notice" role="dialog" aria-live="polite">` +
		`<p>Have a question? We are happy to help.</p>` +
		`<button type="button" class="adaptive-ui-close" aria-label="Dismiss">&times;</button>` +
		`</div>`

	DefaultCSS = `.adaptive-ui-notice{position:fixed;right:16px;bottom:16px;z-index:2147483000;` +
		`max-width:320px;padding:16px 40px 16px 16px;border-radius:8px;background:#fff;color:#111;` +
		`box-shadow:0 4px 24px rgba(0,0,0,.18);font:14px/1.4 system-ui,sans-serif}` +
		`.adaptive-ui-close{position:absolute;top:8px;right:8px;border:0;background:none;` +
		`font-size:18px;line-height:1;cursor:pointer}`

	dismissButton = `<button type="button" class="adaptive-ui-close" aria-label="Dismiss">&times;</button>`
)

// Normalize fills missing fields with safe defaults and guarantees the markup
// carries exactly one element with the dismiss class. Script tags inside the
// markup are dropped; script belongs in JS, which runs inside an error boundary.
func Normalize(raw Raw) model.AdaptivePayload {
	p := model.AdaptivePayload{
		Selector: strings.TrimSpace(raw.Selector),
		HTML:     strings.TrimSpace(raw.HTML),
		CSS:      strings.TrimSpace(raw.CSS),
		JS:       strings.TrimSpace(raw.JS),
	}
	if p.Selector == "" {
		p.Selector = model.GenericTarget
	}
	if p.HTML == "" {
		p.HTML = DefaultHTML
		if p.CSS == "" {
			p.CSS = DefaultCSS
		}
		return p
	}
	if p.CSS == "" {
		p.CSS = DefaultCSS
	}

	markup, ok := ensureSingleDismiss(p.HTML)
	if !ok {
		p.HTML = DefaultHTML
		return p
	}
	p.HTML = markup
	return p
}

// ensureSingleDismiss parses fragment in a <div> context so top-level <style>
// blocks and void roots survive, then returns the fragment's inner markup.
func ensureSingleDismiss(fragment string) (string, bool) {
	wrapper := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), wrapper)
	if err != nil {
		return "", false
	}
	for _, n := range nodes {
		wrapper.AppendChild(n)
	}
	root := goquery.NewDocumentFromNode(wrapper).Selection
	root.Find("script").Remove()

	closers := root.Find("." + model.DismissClass)
	switch closers.Length() {
	case 0:
		host := root
		if kids := root.Children(); kids.Length() == 1 && canHold(kids.First()) {
			host = kids.First()
		}
		host.AppendHtml(dismissButton)
	case 1:
	default:
		closers.Slice(1, goquery.ToEnd).RemoveClass(model.DismissClass)
	}

	out, err := root.Html()
	if err != nil || strings.TrimSpace(out) == "" {
		return "", false
	}
	return strings.TrimSpace(out), true
}

// Void and raw-text elements cannot take the dismiss button as a child.
var leafElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true,
	"img": true, "input": true, "link": true, "meta": true, "source": true,
	"track": true, "wbr": true, "style": true, "textarea": true, "title": true,
}

func canHold(s *goquery.Selection) bool {
	return !leafElements[goquery.NodeName(s)]
}

// DismissCount reports how many elements in markup carry the dismiss class.
func DismissCount(markup string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return 0
	}
	return doc.Find("." + model.DismissClass).Length()
}
