package reference

import (
	"net/url"
	"strings"
)

// AllowList accepts video and tour links hosted on known providers. An entry
// matches when it appears in the link's host, so "youtu" admits both
// youtube.com and youtu.be.
type AllowList struct {
	hosts []string
}

func NewAllowList(hosts []string) *AllowList {
	a := &AllowList{}
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			a.hosts = append(a.hosts, h)
		}
	}
	return a
}

// Allowed reports whether raw points at an allowed host. Anything that does
// not parse is rejected.
func (a *AllowList) Allowed(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, h := range a.hosts {
		if strings.Contains(host, h) {
			return true
		}
	}
	return false
}
