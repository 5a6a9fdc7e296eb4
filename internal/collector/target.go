package collector

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ClickTarget describes the element under the pointer.
type ClickTarget struct {
	Selector string
	Tag      string
	Role     string
	Classes  string
	Text     string

	HasClickHandler bool
	PointerCursor   bool
	// InteractiveAncestor is set when any ancestor is itself interactive.
	InteractiveAncestor bool

	X, Y float64
}

var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
	"label": true, "summary": true, "option": true, "details": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "menuitem": true, "tab": true,
	"option": true, "switch": true, "radio": true,
}

var ctaHints = []string{"cta", "btn", "button", "buy", "checkout", "signup", "sign-up", "subscribe", "demo", "trial", "contact", "pricing"}

// Interactive reports whether a click on t is expected to do something.
func (t ClickTarget) Interactive() bool {
	return interactiveTags[strings.ToLower(t.Tag)] ||
		interactiveRoles[strings.ToLower(t.Role)] ||
		t.HasClickHandler ||
		t.PointerCursor ||
		t.InteractiveAncestor
}

// CallToAction reports whether t looks like a call to action.
func (t ClickTarget) CallToAction() bool {
	tag := strings.ToLower(t.Tag)
	if tag == "button" || strings.ToLower(t.Role) == "button" {
		return true
	}
	hay := strings.ToLower(t.Selector + " " + t.Classes)
	if tag == "a" {
		hay += " " + strings.ToLower(t.Text)
	}
	for _, h := range ctaHints {
		if strings.Contains(hay, h) {
			return true
		}
	}
	return false
}

// IsInteractive inspects a parsed element and its ancestors.
func IsInteractive(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	if selfInteractive(sel.First()) {
		return true
	}
	found := false
	sel.First().Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		found = selfInteractive(p)
		return !found
	})
	return found
}

func selfInteractive(s *goquery.Selection) bool {
	if interactiveTags[goquery.NodeName(s)] {
		return true
	}
	if role, ok := s.Attr("role"); ok && interactiveRoles[strings.ToLower(role)] {
		return true
	}
	if _, ok := s.Attr("onclick"); ok {
		return true
	}
	if _, ok := s.Attr("data-action"); ok {
		return true
	}
	style, _ := s.Attr("style")
	return pointerCursor(style)
}

// pointerCursor reports an inline style declaring cursor:pointer.
func pointerCursor(style string) bool {
	return strings.Contains(strings.ReplaceAll(strings.ToLower(style), " ", ""), "cursor:pointer")
}

// TargetFromSelection builds a ClickTarget from parsed markup.
func TargetFromSelection(sel *goquery.Selection, selector string, x, y float64) ClickTarget {
	t := ClickTarget{Selector: selector, X: x, Y: y}
	if sel == nil || sel.Length() == 0 {
		return t
	}
	el := sel.First()
	t.Tag = goquery.NodeName(el)
	t.Role, _ = el.Attr("role")
	t.Classes, _ = el.Attr("class")
	t.Text = strings.TrimSpace(el.Text())
	_, t.HasClickHandler = el.Attr("onclick")
	style, _ := el.Attr("style")
	t.PointerCursor = pointerCursor(style)
	el.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t.InteractiveAncestor = selfInteractive(p)
		return !t.InteractiveAncestor
	})
	return t
}
