package navigation

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultAuxiliaryDomains are the advertising and analytics authorities the
// content needs to stay inside the primary surface.
var DefaultAuxiliaryDomains = []string{
	"googlesyndication.com",
	"doubleclick.net",
	"google.com",
	"gstatic.com",
}

// Policy decides which authorities stay internal. Plain entries match the
// domain itself and any subdomain on a label boundary; entries containing
// '*' are glob patterns matched against the whole host.
type Policy struct {
	domains  []string
	patterns []string
}

// NewPolicy builds a policy from domain entries. Entries are lowercased and
// stripped of leading dots; empty entries are ignored.
func NewPolicy(entries ...string) *Policy {
	p := &Policy{}
	for _, e := range entries {
		e = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), ".")
		if e == "" {
			continue
		}
		if strings.Contains(e, "*") && doublestar.ValidatePattern(e) {
			p.patterns = append(p.patterns, e)
			continue
		}
		p.domains = append(p.domains, e)
	}
	return p
}

// Decide returns AllowInternal for an empty authority or one matching an
// entry, and DelegateExternal otherwise. A port in authority is ignored.
func (p *Policy) Decide(authority string) Decision {
	host := normalizeHost(authority)
	if host == "" {
		return AllowInternal
	}
	for _, d := range p.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return AllowInternal
		}
	}
	for _, pattern := range p.patterns {
		if ok, _ := doublestar.Match(pattern, host); ok {
			return AllowInternal
		}
	}
	return DelegateExternal
}

// Domains returns the plain entries followed by the patterns.
func (p *Policy) Domains() []string {
	out := make([]string, 0, len(p.domains)+len(p.patterns))
	out = append(out, p.domains...)
	return append(out, p.patterns...)
}

func normalizeHost(authority string) string {
	host := strings.ToLower(strings.TrimSpace(authority))
	if i := strings.LastIndex(host, "@"); i >= 0 {
		host = host[i+1:]
	}
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return host[1:end]
		}
	}
	if i := strings.LastIndex(host, ":"); i >= 0 && strings.Count(host, ":") == 1 {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

// contentDomain returns the registrable part of the entry host used for
// the allow-list: a leading "www." is dropped so sibling subdomains match.
func contentDomain(host string) string {
	return strings.TrimPrefix(normalizeHost(host), "www.")
}
