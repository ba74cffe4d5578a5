package evidence

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-evaluator/internal/model"
	"github.com/sells-group/bid-evaluator/internal/resilience"
	"github.com/sells-group/bid-evaluator/pkg/jina"
)

var (
	licenseActiveWords   = []string{"active", "current", "valid", "in good standing"}
	licenseProblemWords  = []string{"expired", "revoked", "suspended", "inactive", "delinquent"}
	insuranceOnFileWords = []string{"liability insurance", "workers' comp", "workers comp", "bond on file", "insurance on file"}
)

// CredentialsAdapter checks a bid's license number against public license
// lookup pages found by web search. It needs a license number on the bid and
// is a no-op without a search client.
type CredentialsAdapter struct {
	search jina.Client
}

// NewCredentialsAdapter creates a CredentialsAdapter; search may be nil.
func NewCredentialsAdapter(search jina.Client) *CredentialsAdapter {
	return &CredentialsAdapter{search: search}
}

// Adapter exposes the license source for registration.
func (c *CredentialsAdapter) Adapter() Adapter {
	if c.search == nil {
		return Adapter{Name: model.SourceLicense, Enrich: noop("license lookup disabled")}
	}
	return Adapter{Name: model.SourceLicense, Enrich: c.Enrich}
}

// Enrich implements EnrichFunc.
func (c *CredentialsAdapter) Enrich(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings) {
	license := strings.TrimSpace(bid.LicenseNumber)
	if license == "" {
		f.Skip("no license number")
		return
	}

	query := joinNonEmpty(quoted(license), bid.DisplayName(), "contractor license lookup", project.Location)
	resp, err := c.search.Search(ctx, query)
	if err != nil {
		zap.L().Debug("evidence: license search failed",
			zap.String("contractor_id", bid.ID),
			zap.String("class", resilience.Classify(err)),
			zap.Error(err),
		)
		f.Fail(eris.Wrap(err, "credentials: license search"))
		return
	}

	status := CheckLicense(resp.Data, license)
	if !status.Found {
		f.Skip("license number not found")
		return
	}
	switch {
	case status.Problem != "":
		f.AddRedFlag("License " + license + " reported " + status.Problem)
	case status.Active:
		f.LicenseVerified = true
		f.AddGreenFlag("License " + license + " verified active")
	}
	if status.Insured {
		f.InsuranceVerified = true
		f.AddGreenFlag("Insurance on file with licensing board")
	}
	f.AddSource(model.SourceLicense)
}

// LicenseStatus summarizes what search results say about one license number.
type LicenseStatus struct {
	Found   bool
	Active  bool
	Problem string
	Insured bool
}

// CheckLicense scans results that mention license for status wording. A
// problem word on any mentioning result wins over an active word.
func CheckLicense(results []jina.SearchResult, license string) LicenseStatus {
	var st LicenseStatus
	needle := strings.ToLower(license)
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Description + " " + r.Content)
		if !strings.Contains(text, needle) {
			continue
		}
		st.Found = true
		if st.Problem == "" {
			for _, w := range licenseProblemWords {
				if containsWord(text, w) {
					st.Problem = w
					break
				}
			}
		}
		for _, w := range licenseActiveWords {
			if containsWord(text, w) {
				st.Active = true
				break
			}
		}
		for _, w := range insuranceOnFileWords {
			if strings.Contains(text, w) {
				st.Insured = true
				break
			}
		}
	}
	return st
}
