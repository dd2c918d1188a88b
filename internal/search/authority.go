package search

import (
	"net/url"
	"sort"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
)

// Authority ranks how much weight a background-check source deserves.
// Lower values rank first.
type Authority int

const (
	AuthorityOfficial Authority = iota + 1 // registries, courts, customs and other government sources
	AuthorityPress                         // established business press
	AuthorityOther
)

func (a Authority) String() string {
	switch a {
	case AuthorityOfficial:
		return "official"
	case AuthorityPress:
		return "press"
	default:
		return "other"
	}
}

// DefaultOfficialDomains are company registries and public record sites
var DefaultOfficialDomains = []string{
	"companieshouse.gov.uk",
	"find-and-update.company-information.service.gov.uk",
	"opencorporates.com",
	"sec.gov",
	"europa.eu",
	"courtlistener.com",
	"handelsregister.de",
	"unternehmensregister.de",
	"infogreffe.fr",
	"kvk.nl",
	"egrul.nalog.ru",
	"gsxt.gov.cn",
}

// DefaultPressDomains are business news outlets
var DefaultPressDomains = []string{
	"reuters.com",
	"bloomberg.com",
	"ft.com",
	"wsj.com",
	"economist.com",
	"forbes.com",
	"cnbc.com",
	"apnews.com",
}

// officialSuffixes mark government hosts regardless of country
var officialSuffixes = []string{".gov", ".mil", ".int", ".gov.uk", ".gouv.fr", ".gob.es", ".gov.au", ".gc.ca", ".go.jp", ".gov.cn", ".gov.in"}

// AuthorityClassifier assigns an Authority to result URLs
type AuthorityClassifier struct {
	official map[string]bool
	press    map[string]bool
}

// NewAuthorityClassifier builds a classifier from domain lists. Nil lists
// fall back to the defaults.
func NewAuthorityClassifier(official, press []string) *AuthorityClassifier {
	if official == nil {
		official = DefaultOfficialDomains
	}
	if press == nil {
		press = DefaultPressDomains
	}
	return &AuthorityClassifier{official: domainSet(official), press: domainSet(press)}
}

// Classify returns the authority of rawURL's host. Subdomains inherit their
// parent's class.
func (a *AuthorityClassifier) Classify(rawURL string) Authority {
	u, err := url.Parse(rawURL)
	if err != nil {
		return AuthorityOther
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return AuthorityOther
	}

	if matchDomain(a.official, host) {
		return AuthorityOfficial
	}
	for _, suffix := range officialSuffixes {
		if strings.HasSuffix(host, suffix) {
			return AuthorityOfficial
		}
	}
	if matchDomain(a.press, host) {
		return AuthorityPress
	}
	return AuthorityOther
}

// Rank returns a copy of hits ordered by authority. Hits of equal authority
// keep the search engine's order.
func (a *AuthorityClassifier) Rank(hits []model.SearchHit) []model.SearchHit {
	out := append([]model.SearchHit(nil), hits...)
	sort.SliceStable(out, func(i, j int) bool {
		return a.Classify(out[i].URL) < a.Classify(out[j].URL)
	})
	return out
}

func domainSet(domains []string) map[string]bool {
	m := make(map[string]bool, len(domains))
	for _, d := range domains {
		m[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return m
}

func matchDomain(set map[string]bool, host string) bool {
	for h := host; h != ""; {
		if set[h] {
			return true
		}
		i := strings.IndexByte(h, '.')
		if i < 0 {
			break
		}
		h = h[i+1:]
	}
	return false
}
