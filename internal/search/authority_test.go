package search

import (
	"strings"
	"testing"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	a := NewAuthorityClassifier(nil, nil)

	tests := []struct {
		url  string
		want Authority
	}{
		{"https://opencorporates.com/companies/gb/123", AuthorityOfficial},
		{"https://find-and-update.company-information.service.gov.uk/company/1", AuthorityOfficial},
		{"https://www.sec.gov/cgi-bin/browse-edgar", AuthorityOfficial},
		{"https://pacer.uscourts.gov/case", AuthorityOfficial},
		{"https://data.europa.eu/registry", AuthorityOfficial},
		{"https://www.reuters.com/business/acme", AuthorityPress},
		{"https://markets.ft.com/data", AuthorityPress},
		{"https://acme-reviews.example.com/", AuthorityOther},
		{"https://notreuters.com/", AuthorityOther},
		{"::not a url", AuthorityOther},
		{"", AuthorityOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.Classify(tt.url), tt.url)
	}
}

func TestAuthorityClassifier_CustomDomains(t *testing.T) {
	a := NewAuthorityClassifier([]string{"Registry.Example"}, []string{})

	assert.Equal(t, AuthorityOfficial, a.Classify("https://search.registry.example/x"))
	assert.Equal(t, AuthorityOther, a.Classify("https://reuters.com/x"))
}

func TestAuthorityClassifier_Rank(t *testing.T) {
	a := NewAuthorityClassifier(nil, nil)
	hits := []model.SearchHit{
		{Title: "blog", URL: "https://blog.example.com/acme"},
		{Title: "news", URL: "https://www.bloomberg.com/acme"},
		{Title: "forum", URL: "https://forum.example.org/acme"},
		{Title: "registry", URL: "https://opencorporates.com/acme"},
	}

	ranked := a.Rank(hits)
	require.Len(t, ranked, 4)
	var titles []string
	for _, h := range ranked {
		titles = append(titles, h.Title)
	}
	assert.Equal(t, []string{"registry", "news", "blog", "forum"}, titles)
	assert.Equal(t, "blog", hits[0].Title)
}

func TestDigest_PrefersOfficialSources(t *testing.T) {
	cd := model.CompanyData{
		Legal: &model.BackgroundResult{Hits: []model.SearchHit{
			{Title: "gossip 1", URL: "https://a.example.com"},
			{Title: "gossip 2", URL: "https://b.example.com"},
			{Title: "gossip 3", URL: "https://c.example.com"},
			{Title: "court record", URL: "https://www.courtlistener.com/docket/1"},
		}},
	}

	d := Digest(cd)
	assert.Contains(t, d, "- [official] court record")
	assert.NotContains(t, d, "gossip 3")
	assert.True(t, strings.Index(d, "court record") < strings.Index(d, "gossip 1"))
}
