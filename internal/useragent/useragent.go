// Package useragent derives a coarse device and browser class from a
// User-Agent header. Classes are for segmentation only, never identification.
package useragent

import "strings"

const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"

	BrowserChrome  = "chrome"
	BrowserEdge    = "edge"
	BrowserFirefox = "firefox"
	BrowserSafari  = "safari"
	BrowserOpera   = "opera"
	BrowserOther   = "other"
)

// Class is the parsed result.
type Class struct {
	Device  string `json:"device"`
	Browser string `json:"browser"`
}

type rule struct {
	class   string
	needles []string
}

// Order matters: the first rule with any matching needle wins.
var deviceRules = []rule{
	{DeviceBot, []string{"bot", "crawler", "spider", "slurp", "headless", "lighthouse"}},
	{DeviceTablet, []string{"ipad", "tablet", "kindle", "silk/", "playbook"}},
	{DeviceMobile, []string{"iphone", "ipod", "android", "mobile", "windows phone", "blackberry"}},
}

// Edge and Opera embed "Chrome" in their UA, and Chrome embeds "Safari",
// so the more specific tokens come first.
var browserRules = []rule{
	{BrowserEdge, []string{"edg/", "edge/", "edga/", "edgios/"}},
	{BrowserOpera, []string{"opr/", "opera"}},
	{BrowserFirefox, []string{"firefox/", "fxios/"}},
	{BrowserChrome, []string{"chrome/", "crios/", "chromium/"}},
	{BrowserSafari, []string{"safari/"}},
}

// Parse classifies ua. An empty UA is treated as a desktop of unknown browser.
func Parse(ua string) Class {
	lower := strings.ToLower(ua)
	c := Class{Device: DeviceDesktop, Browser: BrowserOther}
	if lower == "" {
		return c
	}
	if d, ok := first(deviceRules, lower); ok {
		c.Device = d
	}
	// Android phones say "Mobile"; Android tablets do not.
	if c.Device == DeviceMobile && strings.Contains(lower, "android") && !strings.Contains(lower, "mobile") {
		c.Device = DeviceTablet
	}
	if b, ok := first(browserRules, lower); ok {
		c.Browser = b
	}
	return c
}

func first(rules []rule, s string) (string, bool) {
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(s, n) {
				return r.class, true
			}
		}
	}
	return "", false
}
