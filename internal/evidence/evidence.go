// Package evidence holds the per-source adapters that gather contractor
// evidence. Each adapter writes only to its own Findings; the profile builder
// merges them after every adapter has settled.
package evidence

import (
	"context"

	"github.com/sells-group/bid-evaluator/internal/model"
)

// EnrichFunc gathers evidence for one bid into f. It must not retain f after
// returning and reports problems through f.Fail rather than an error return.
type EnrichFunc func(ctx context.Context, bid model.ContractorBid, project model.ProjectDetails, f *Findings)

// Adapter is a named evidence source.
type Adapter struct {
	Name   string
	Enrich EnrichFunc
}

// Outcome of one adapter run, used for logs and metric labels.
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomePanic   = "panic"
)

// Findings is one adapter's private accumulator.
type Findings struct {
	Rating             *float64
	ReviewCount        *int
	YearsInBusiness    *int
	LicenseVerified    bool
	InsuranceVerified  bool
	AccreditationGrade string
	Specialties        []string
	RecentReviews      []string
	RedFlags           []string
	GreenFlags         []string
	Sources            []string

	err        error
	skipReason string
}

// AddSource records a consulted source once.
func (f *Findings) AddSource(name string) {
	f.Sources = appendUnique(f.Sources, name)
}

// AddSpecialty records a specialty label once.
func (f *Findings) AddSpecialty(label string) {
	f.Specialties = appendUnique(f.Specialties, label)
}

// AddGreenFlag appends a positive signal.
func (f *Findings) AddGreenFlag(flag string) {
	f.GreenFlags = append(f.GreenFlags, flag)
}

// AddRedFlag appends a negative signal.
func (f *Findings) AddRedFlag(flag string) {
	f.RedFlags = append(f.RedFlags, flag)
}

// Fail marks the adapter as failed. Fields set before the failure still merge.
func (f *Findings) Fail(err error) {
	f.err = err
}

// Skip marks the adapter as not applicable to this bid.
func (f *Findings) Skip(reason string) {
	f.skipReason = reason
}

// Err returns the failure recorded by Fail.
func (f *Findings) Err() error { return f.err }

// Outcome classifies how the adapter finished.
func (f *Findings) Outcome() string {
	switch {
	case f.err != nil:
		return OutcomeFailed
	case f.skipReason != "":
		return OutcomeSkipped
	default:
		return OutcomeOK
	}
}

// SkipReason returns the reason given to Skip.
func (f *Findings) SkipReason() string { return f.skipReason }

// ApplyTo merges f into p. Scalars overwrite when set, booleans only ever turn
// on, lists append and sets stay duplicate-free.
func (f *Findings) ApplyTo(p *model.ContractorProfile) {
	if f.Rating != nil {
		v := *f.Rating
		p.Rating = &v
	}
	if f.ReviewCount != nil {
		v := *f.ReviewCount
		p.ReviewCount = &v
	}
	if f.YearsInBusiness != nil {
		v := *f.YearsInBusiness
		p.YearsInBusiness = &v
	}
	p.LicenseVerified = p.LicenseVerified || f.LicenseVerified
	p.InsuranceVerified = p.InsuranceVerified || f.InsuranceVerified
	if f.AccreditationGrade != "" {
		p.AccreditationGrade = f.AccreditationGrade
	}
	for _, s := range f.Specialties {
		p.Specialties = appendUnique(p.Specialties, s)
	}
	p.RecentReviews = append(p.RecentReviews, f.RecentReviews...)
	p.RedFlags = append(p.RedFlags, f.RedFlags...)
	p.GreenFlags = append(p.GreenFlags, f.GreenFlags...)
	for _, s := range f.Sources {
		p.DataSources = appendUnique(p.DataSources, s)
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// noop is the behavior of an extension-point adapter without a backing client.
func noop(reason string) EnrichFunc {
	return func(_ context.Context, _ model.ContractorBid, _ model.ProjectDetails, f *Findings) {
		f.Skip(reason)
	}
}
