package useragent

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want Class
	}{
		{
			name: "desktop chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			want: Class{DeviceDesktop, BrowserChrome},
		},
		{
			name: "desktop edge",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36 Edg/124.0",
			want: Class{DeviceDesktop, BrowserEdge},
		},
		{
			name: "iphone safari",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			want: Class{DeviceMobile, BrowserSafari},
		},
		{
			name: "ipad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
			want: Class{DeviceTablet, BrowserSafari},
		},
		{
			name: "android tablet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-X200) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			want: Class{DeviceTablet, BrowserChrome},
		},
		{
			name: "android phone firefox",
			ua:   "Mozilla/5.0 (Android 14; Mobile; rv:125.0) Gecko/125.0 Firefox/125.0",
			want: Class{DeviceMobile, BrowserFirefox},
		},
		{
			name: "googlebot",
			ua:   "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want: Class{DeviceBot, BrowserOther},
		},
		{
			name: "empty",
			ua:   "",
			want: Class{DeviceDesktop, BrowserOther},
		},
	}
	for _, tc := range cases {
		if got := Parse(tc.ua); got != tc.want {
			t.Errorf("%s: Parse() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}
