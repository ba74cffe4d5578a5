// Package model defines the request, profile and result types shared by the
// evaluation engine.
package model

// ContractorBid is one contractor's proposal for a project. Immutable input.
type ContractorBid struct {
	ID              string  `json:"contractor_id" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	CompanyName     string  `json:"company_name"`
	BidAmount       float64 `json:"bid_amount" validate:"gte=0"`
	CompanyWebsite  string  `json:"company_website,omitempty" validate:"omitempty,url"`
	Phone           string  `json:"phone,omitempty"`
	Email           string  `json:"email,omitempty" validate:"omitempty,email"`
	LicenseNumber   string  `json:"license_number,omitempty"`
	YearsExperience *int    `json:"years_experience,omitempty" validate:"omitempty,gte=0"`
}

// DisplayName returns the company name when present, otherwise the contact name.
func (b ContractorBid) DisplayName() string {
	if b.CompanyName != "" {
		return b.CompanyName
	}
	return b.Name
}

// ProjectDetails describes the reconstruction project the bids were placed against.
type ProjectDetails struct {
	Description string   `json:"description" validate:"required"`
	ProjectType string   `json:"project_type,omitempty"`
	Location    string   `json:"location,omitempty"`
	TargetPrice *float64 `json:"target_price,omitempty" validate:"omitempty,gte=0"`
	Timeline    string   `json:"timeline,omitempty"`
	Size        string   `json:"size,omitempty"`
	Urgency     string   `json:"urgency,omitempty"`
}

// EvaluationRequest is the input to a single evaluation.
type EvaluationRequest struct {
	Project       ProjectDetails  `json:"project_details" validate:"required"`
	Bids          []ContractorBid `json:"contractor_bids" validate:"dive"`
	AnalysisDepth string          `json:"analysis_depth,omitempty"`
}

// BidAmounts returns the bid amounts in request order.
func (r EvaluationRequest) BidAmounts() []float64 {
	out := make([]float64, len(r.Bids))
	for i, b := range r.Bids {
		out[i] = b.BidAmount
	}
	return out
}
