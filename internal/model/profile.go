package model

// Data source names recorded on a profile when an adapter lands evidence.
const (
	SourceWebsite     = "contractor_website"
	SourcePlaces      = "google_places_api"
	SourceWebSearch   = "google_search"
	SourceBBB         = "bbb"
	SourceLicense     = "license_verification"
	SourceReviewSites = "review_platforms"
)

// ScoreBreakdown holds the component scores behind OverallScore, each in [0,1].
type ScoreBreakdown struct {
	Rating         float64 `json:"rating"`
	Experience     float64 `json:"experience"`
	Specialization float64 `json:"specialization"`
	Credentials    float64 `json:"credentials"`
	Reputation     float64 `json:"reputation"`
}

// ContractorProfile is the accumulated evidence and derived scores for one
// contractor within one evaluation. Built by the profile builder, finalized
// once, and treated as immutable afterwards.
type ContractorProfile struct {
	ContractorID string  `json:"contractor_id"`
	Name         string  `json:"name"`
	CompanyName  string  `json:"company_name"`
	BidAmount    float64 `json:"bid_amount"`

	Rating             *float64 `json:"rating"`
	ReviewCount        *int     `json:"review_count"`
	YearsInBusiness    *int     `json:"years_in_business"`
	LicenseVerified    bool     `json:"license_verified"`
	InsuranceVerified  bool     `json:"insurance_verified"`
	AccreditationGrade string   `json:"accreditation_grade,omitempty"`
	Specialties        []string `json:"specialties"`
	RecentReviews      []string `json:"recent_reviews"`
	RedFlags           []string `json:"red_flags"`
	GreenFlags         []string `json:"green_flags"`
	DataSources        []string `json:"data_sources"`

	PricingCompetitiveness float64        `json:"pricing_competitiveness"`
	ConfidenceScore        float64        `json:"confidence_score"`
	OverallScore           float64        `json:"overall_score"`
	Breakdown              ScoreBreakdown `json:"score_breakdown"`
}

// NewContractorProfile returns an empty profile seeded from a bid.
func NewContractorProfile(bid ContractorBid) *ContractorProfile {
	return &ContractorProfile{
		ContractorID:  bid.ID,
		Name:          bid.Name,
		CompanyName:   bid.CompanyName,
		BidAmount:     bid.BidAmount,
		Specialties:   []string{},
		RecentReviews: []string{},
		RedFlags:      []string{},
		GreenFlags:    []string{},
		DataSources:   []string{},
	}
}

// DisplayName returns the company name when present, otherwise the contact name.
func (p ContractorProfile) DisplayName() string {
	if p.CompanyName != "" {
		return p.CompanyName
	}
	return p.Name
}
