// Package scorer computes contractor trust/fit scores from collected evidence.
// Every function here is pure: the same profile always yields the same scores.
package scorer

import (
	"math"
	"strings"

	"github.com/sells-group/bid-evaluator/internal/model"
)

// Component weights for the overall score (sum = 1).
const (
	RatingWeight         = 0.25
	ExperienceWeight     = 0.20
	SpecializationWeight = 0.25
	CredentialsWeight    = 0.15
	ReputationWeight     = 0.15

	// RedFlagPenalty is subtracted from the weighted sum once per red flag.
	RedFlagPenalty = 0.05
)

// Neutral values used when evidence is absent.
const (
	neutralRating      = 0.5
	unknownExperience  = 0.3
	unknownSpecialties = 0.3
	specialtyBaseline  = 0.3
)

// sourceWeights is the confidence contribution of each distinct data source.
var sourceWeights = map[string]float64{
	model.SourceWebsite:     0.15,
	model.SourcePlaces:      0.25,
	model.SourceWebSearch:   0.20,
	model.SourceBBB:         0.15,
	model.SourceLicense:     0.20,
	model.SourceReviewSites: 0.05,
}

const defaultSourceWeight = 0.05

// topGrades are the accreditation grades that earn credential points.
var topGrades = map[string]bool{"A+": true, "A": true, "A-": true}

// Confidence sums the weight of each distinct consulted source.
func Confidence(sources []string) float64 {
	seen := make(map[string]bool, len(sources))
	var total float64
	for _, s := range sources {
		if seen[s] {
			continue
		}
		seen[s] = true
		w, ok := sourceWeights[s]
		if !ok {
			w = defaultSourceWeight
		}
		total += w
	}
	return total
}

// RatingScore maps a 0-5 star rating to [0,1]; absent is neutral.
func RatingScore(rating *float64) float64 {
	if rating == nil {
		return neutralRating
	}
	return math.Min(*rating/5, 1)
}

// ExperienceScore maps years in business to [0,1], saturating at 10 years.
func ExperienceScore(years *int) float64 {
	if years == nil {
		return unknownExperience
	}
	return math.Min(float64(*years)/10, 1)
}

// SpecializationScore measures how many whitespace tokens of the project type
// appear inside the contractor's detected specialties.
func SpecializationScore(specialties []string, projectType string) float64 {
	if len(specialties) == 0 {
		return unknownSpecialties
	}
	tokens := strings.Fields(strings.ToLower(projectType))
	if len(tokens) == 0 {
		return specialtyBaseline
	}

	joined := strings.ToLower(strings.Join(specialties, " "))
	matched := 0
	for _, tok := range tokens {
		if strings.Contains(joined, tok) {
			matched++
		}
	}
	return math.Min(float64(matched)/float64(len(tokens))+specialtyBaseline, 1)
}

// CredentialScore rewards verified license, verified insurance and a top
// accreditation grade.
func CredentialScore(licenseVerified, insuranceVerified bool, grade string) float64 {
	var score float64
	if licenseVerified {
		score += 0.4
	}
	if insuranceVerified {
		score += 0.3
	}
	if topGrades[strings.TrimSpace(grade)] {
		score += 0.3
	}
	return math.Min(score, 1)
}

// ReputationScore balances green flags against red flags around 0.5.
func ReputationScore(greenFlags, redFlags int) float64 {
	v := float64(greenFlags)*0.1 - float64(redFlags)*0.15 + 0.5
	return math.Max(0, math.Min(v, 1))
}

// Breakdown computes the five component scores for a profile.
func Breakdown(p *model.ContractorProfile, projectType string) model.ScoreBreakdown {
	return model.ScoreBreakdown{
		Rating:         RatingScore(p.Rating),
		Experience:     ExperienceScore(p.YearsInBusiness),
		Specialization: SpecializationScore(p.Specialties, projectType),
		Credentials:    CredentialScore(p.LicenseVerified, p.InsuranceVerified, p.AccreditationGrade),
		Reputation:     ReputationScore(len(p.GreenFlags), len(p.RedFlags)),
	}
}

// Overall combines a breakdown into one score in [0,1], applying the red flag
// penalty after weighting.
func Overall(b model.ScoreBreakdown, redFlags int) float64 {
	sum := b.Rating*RatingWeight +
		b.Experience*ExperienceWeight +
		b.Specialization*SpecializationWeight +
		b.Credentials*CredentialsWeight +
		b.Reputation*ReputationWeight
	sum -= float64(redFlags) * RedFlagPenalty
	return clamp01(sum)
}

// Finalize sets the confidence, breakdown and overall score on p.
func Finalize(p *model.ContractorProfile, projectType string) {
	p.ConfidenceScore = Confidence(p.DataSources)
	p.Breakdown = Breakdown(p, projectType)
	p.OverallScore = Overall(p.Breakdown, len(p.RedFlags))
}

// PricingCompetitiveness scores a bid against the mean bid of its batch.
// A zero mean makes the ratio undefined, which scores 0.5.
func PricingCompetitiveness(bidAmount, meanBid float64) float64 {
	if meanBid == 0 {
		return 0.5
	}
	ratio := bidAmount / meanBid
	switch {
	case ratio >= 0.9 && ratio <= 1.1:
		return 1.0
	case ratio < 0.5:
		return 0.2
	case ratio > 2.0:
		return 0.1
	default:
		return math.Max(0.1, 1-math.Abs(ratio-1))
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
