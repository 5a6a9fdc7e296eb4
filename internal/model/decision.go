package model

// DismissClass is the single reserved class that closes an injected adaptive UI.
// Every payload handed to a collector contains exactly one element carrying it.
const DismissClass = "adaptive-ui-close"

// GenericTarget marks a payload that is not anchored to a page element and
// should be pinned to a fixed on-screen position instead.
const GenericTarget = "body"

// Decision is returned to the collector for every ingested batch.
type Decision struct {
	SessionID       string           `json:"session_id"`
	Category        Category         `json:"category"`
	Score           int              `json:"score"`
	SuggestedAction *string          `json:"suggested_action"`
	AdaptiveUI      *AdaptivePayload `json:"adaptive_ui"`
}

// AdaptivePayload is the generated or cached UI injected into the page.
type AdaptivePayload struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
	CSS      string `json:"css"`
	JS       string `json:"js"`
}

// IsEmpty reports whether the payload carries no markup.
func (p *AdaptivePayload) IsEmpty() bool {
	return p == nil || p.HTML == ""
}

// IsGenericTarget reports whether the payload should be pinned rather than
// appended to a specific element.
func (p *AdaptivePayload) IsGenericTarget() bool {
	return p == nil || p.Selector == "" || p.Selector == GenericTarget || p.Selector == "html"
}
