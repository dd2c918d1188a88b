package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/covenant/internal/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Check names one background query
type Check string

const (
	CheckProfile                Check = "profile"
	CheckCustoms                Check = "customs"
	CheckLegal                  Check = "legal"
	CheckResponsiblePerson      Check = "responsible_person"
	CheckResponsiblePersonLegal Check = "responsible_person_legal"
)

// Checks lists every background query in report order
var Checks = []Check{
	CheckProfile,
	CheckCustoms,
	CheckLegal,
	CheckResponsiblePerson,
	CheckResponsiblePersonLegal,
}

// Query renders the search query for a check against a company
func (c Check) Query(company string) string {
	switch c {
	case CheckProfile:
		return fmt.Sprintf("%s company profile registration address founded", company)
	case CheckCustoms:
		return fmt.Sprintf("%s import export customs records trade data", company)
	case CheckLegal:
		return fmt.Sprintf("%s lawsuit litigation court judgment sanctions", company)
	case CheckResponsiblePerson:
		return fmt.Sprintf("%s legal representative director CEO owner", company)
	case CheckResponsiblePersonLegal:
		return fmt.Sprintf("%s director owner fraud lawsuit bankruptcy", company)
	}
	return company
}

// CheckError reports which background check failed
type CheckError struct {
	Check Check
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("background check %s: %v", e.Check, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// BackgroundChecker runs every check for a company concurrently
type BackgroundChecker struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewBackgroundChecker creates a checker. A nil searcher yields empty
// company data.
func NewBackgroundChecker(searcher Searcher, logger *zap.Logger) *BackgroundChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundChecker{searcher: searcher, logger: logger.Named("background")}
}

// Enabled reports whether checks will actually run
func (b *BackgroundChecker) Enabled() bool {
	return b != nil && b.searcher != nil
}

// Run executes all checks. The first failure cancels the rest and is
// returned; partial results are discarded.
func (b *BackgroundChecker) Run(ctx context.Context, company string) (model.CompanyData, error) {
	company = strings.TrimSpace(company)
	if !b.Enabled() || company == "" {
		return model.CompanyData{}, nil
	}

	results := make([]*model.BackgroundResult, len(Checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range Checks {
		g.Go(func() error {
			res, err := b.searcher.Search(gctx, check.Query(company))
			if err != nil {
				return &CheckError{Check: check, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.CompanyData{}, eris.Wrapf(err, "background checks for %s", company)
	}

	b.logger.Debug("background checks complete", zap.String("company", company), zap.Int("checks", len(Checks)))

	return model.CompanyData{
		Profile:                results[0],
		Customs:                results[1],
		Legal:                  results[2],
		ResponsiblePerson:      results[3],
		ResponsiblePersonLegal: results[4],
	}, nil
}

// maxDigestHits bounds how many hits per check reach the prompt
const maxDigestHits = 3

var defaultClassifier = NewAuthorityClassifier(nil, nil)

// Digest renders company data as plain text for an assessment prompt.
// Official and press sources are listed before the rest.
func Digest(cd model.CompanyData) string {
	sections := []struct {
		title string
		res   *model.BackgroundResult
	}{
		{"Company profile", cd.Profile},
		{"Customs and trade", cd.Customs},
		{"Legal and litigation", cd.Legal},
		{"Responsible person", cd.ResponsiblePerson},
		{"Responsible person legal issues", cd.ResponsiblePersonLegal},
	}

	var b strings.Builder
	for _, s := range sections {
		if s.res == nil {
			continue
		}
		fmt.Fprintf(&b, "## %s\n", s.title)
		if s.res.Answer != "" {
			b.WriteString(s.res.Answer)
			b.WriteString("\n")
		}
		for i, h := range defaultClassifier.Rank(s.res.Hits) {
			if i >= maxDigestHits {
				break
			}
			content := h.Content
			if r := []rune(content); len(r) > 300 {
				content = string(r[:300]) + "..."
			}
			tag := ""
			if a := defaultClassifier.Classify(h.URL); a != AuthorityOther {
				tag = "[" + a.String() + "] "
			}
			fmt.Fprintf(&b, "- %s%s (%s): %s\n", tag, h.Title, h.URL, content)
		}
	}
	return strings.TrimSpace(b.String())
}
