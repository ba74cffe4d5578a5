package evidence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bid-evaluator/internal/model"
)

func TestFindings_Outcome(t *testing.T) {
	var f Findings
	assert.Equal(t, OutcomeOK, f.Outcome())

	f.Skip("no website")
	assert.Equal(t, OutcomeSkipped, f.Outcome())
	assert.Equal(t, "no website", f.SkipReason())

	f.Fail(errors.New("boom"))
	assert.Equal(t, OutcomeFailed, f.Outcome())
	assert.EqualError(t, f.Err(), "boom")
}

func TestFindings_SetsStayUnique(t *testing.T) {
	var f Findings
	f.AddSource(model.SourceWebsite)
	f.AddSource(model.SourceWebsite)
	f.AddSpecialty("Roofing")
	f.AddSpecialty("Roofing")

	assert.Equal(t, []string{model.SourceWebsite}, f.Sources)
	assert.Equal(t, []string{"Roofing"}, f.Specialties)
}

func TestFindings_ApplyTo(t *testing.T) {
	p := model.NewContractorProfile(acmeBid)

	rating, count, years := 4.7, 88, 12
	website := &Findings{YearsInBusiness: &years, Specialties: []string{"Roofing"}, GreenFlags: []string{"Licensed (self-reported)"}}
	website.AddSource(model.SourceWebsite)
	directory := &Findings{Rating: &rating, ReviewCount: &count, GreenFlags: []string{"High Google rating"}}
	directory.AddSource(model.SourcePlaces)
	license := &Findings{LicenseVerified: true, RedFlags: []string{"x"}, Specialties: []string{"Roofing", "Painting"}}

	for _, f := range []*Findings{website, directory, license, {}} {
		f.ApplyTo(p)
	}

	assert.Equal(t, 12, *p.YearsInBusiness)
	assert.InDelta(t, 4.7, *p.Rating, 1e-9)
	assert.Equal(t, 88, *p.ReviewCount)
	assert.True(t, p.LicenseVerified)
	assert.False(t, p.InsuranceVerified)
	assert.Equal(t, []string{"Roofing", "Painting"}, p.Specialties)
	assert.Equal(t, []string{"Licensed (self-reported)", "High Google rating"}, p.GreenFlags)
	assert.Equal(t, []string{"x"}, p.RedFlags)
	assert.Equal(t, []string{model.SourceWebsite, model.SourcePlaces}, p.DataSources)

	// Profile values are copies, not aliases of the adapter's findings.
	rating = 1.0
	assert.InDelta(t, 4.7, *p.Rating, 1e-9)
}

func TestFindings_ApplyToKeepsTrueBooleans(t *testing.T) {
	p := model.NewContractorProfile(acmeBid)
	(&Findings{InsuranceVerified: true}).ApplyTo(p)
	(&Findings{}).ApplyTo(p)
	assert.True(t, p.InsuranceVerified)
}
