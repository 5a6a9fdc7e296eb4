// Package inject renders an adaptive payload into an HTML document inside
// its own shadow root, so payload styles and scripts cannot leak into the
// host page and host styles cannot restyle the payload.
package inject

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/intent/internal/model"
	"github.com/raysh454/intent/internal/synthesis"
)

// HostID is the id of the element wrapping the injected shadow root.
const HostID = "adaptive-ui-host"

var ErrAlreadyInjected = errors.New("inject: adaptive ui already present")

// pinnedStyle positions a payload that has no anchor element.
const pinnedStyle = "position:fixed;right:24px;bottom:24px;z-index:2147483647;max-width:min(420px,calc(100vw - 48px));"

// DocumentInjector injects into a parsed document.
type DocumentInjector struct {
	doc *goquery.Document
}

func NewDocumentInjector(doc *goquery.Document) *DocumentInjector {
	return &DocumentInjector{doc: doc}
}

// Inject appends the payload at its target selector, or pins it to the
// viewport when the target is generic or missing from the document. The
// markup is re-normalized so exactly one dismiss control exists.
func (d *DocumentInjector) Inject(p model.AdaptivePayload) error {
	if d.doc == nil {
		return errors.New("inject: nil document")
	}
	if d.doc.Find("#"+HostID).Length() > 0 {
		return ErrAlreadyInjected
	}

	n := synthesis.Normalize(synthesis.Raw{Selector: p.Selector, HTML: p.HTML, CSS: p.CSS, JS: p.JS})

	target, pinned := d.target(&n)
	if target.Length() == 0 {
		return errors.New("inject: document has no body")
	}
	target.AppendHtml(hostMarkup(n, pinned))
	return nil
}

func (d *DocumentInjector) target(p *model.AdaptivePayload) (*goquery.Selection, bool) {
	if !p.IsGenericTarget() {
		if sel := d.doc.Find(p.Selector).First(); sel.Length() > 0 {
			return sel, false
		}
	}
	body := d.doc.Find("body").First()
	return body, true
}

// HTML renders the whole document.
func (d *DocumentInjector) HTML() (string, error) {
	return goquery.OuterHtml(d.doc.Selection)
}

func hostMarkup(p model.AdaptivePayload, pinned bool) string {
	var b strings.Builder
	style := ""
	if pinned {
		style = ` style="` + pinnedStyle + `"`
	}
	fmt.Fprintf(&b, `<div id="%s" data-selector="%s"%s>`, HostID, html.EscapeString(p.Selector), style)
	b.WriteString(`<template shadowrootmode="open">`)
	if p.CSS != "" {
		b.WriteString("<style>")
		b.WriteString(strings.ReplaceAll(p.CSS, "</", `<\/`))
		b.WriteString("</style>")
	}
	b.WriteString(p.HTML)
	b.WriteString("</template>")
	b.WriteString("<script>")
	b.WriteString(bootstrapScript(p.JS))
	b.WriteString("</script>")
	b.WriteString("</div>")
	return b.String()
}

// bootstrapScript attaches the shadow root when the browser did not do it
// declaratively, wires the dismiss control, then runs the payload script
// inside a try/catch that reports only to the console.
func bootstrapScript(js string) string {
	code, _ := json.Marshal(js)
	return `(function(){` +
		`var host=document.getElementById("` + HostID + `");if(!host)return;` +
		`var root=host.shadowRoot;` +
		`if(!root){var tpl=host.querySelector("template");root=host.attachShadow({mode:"open"});` +
		`if(tpl){root.appendChild(tpl.content.cloneNode(true));tpl.remove();}}` +
		`var close=root.querySelector(".` + model.DismissClass + `");` +
		`if(close){close.addEventListener("click",function(e){e.preventDefault();host.remove();});}` +
		`try{new Function("root","host",` + string(code) + `)(root,host);}` +
		`catch(err){console.error("adaptive-ui:",err);}` +
		`})();`
}
