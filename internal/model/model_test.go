package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractorBid_DisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Acme Roofing", ContractorBid{Name: "Jo", CompanyName: "Acme Roofing"}.DisplayName())
	assert.Equal(t, "Jo", ContractorBid{Name: "Jo"}.DisplayName())
}

func TestNewContractorProfile_CopiesBid(t *testing.T) {
	t.Parallel()

	p := NewContractorProfile(ContractorBid{ID: "c1", Name: "Jo", CompanyName: "Acme", BidAmount: 12500})

	assert.Equal(t, "c1", p.ContractorID)
	assert.Equal(t, "Jo", p.Name)
	assert.Equal(t, "Acme", p.CompanyName)
	assert.InDelta(t, 12500, p.BidAmount, 0.001)
	assert.Nil(t, p.Rating)
	assert.Nil(t, p.YearsInBusiness)
	assert.Empty(t, p.DataSources)
}

func TestContractorProfile_JSONEmptyListsNotNull(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(NewContractorProfile(ContractorBid{ID: "c1"}))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["specialties"])
	assert.Equal(t, []any{}, raw["red_flags"])
	assert.Nil(t, raw["rating"])
}

func TestEvaluationRequest_BidAmounts(t *testing.T) {
	t.Parallel()

	req := EvaluationRequest{Bids: []ContractorBid{{BidAmount: 10000}, {BidAmount: 20000}}}
	assert.Equal(t, []float64{10000, 20000}, req.BidAmounts())
	assert.Empty(t, EvaluationRequest{}.BidAmounts())
}

func TestEvaluationRequest_DecodesSnakeCase(t *testing.T) {
	t.Parallel()

	body := `{
		"project_details": {"description": "Roof replacement", "project_type": "roofing", "location": "Tampa, FL"},
		"contractor_bids": [{"contractor_id": "c1", "name": "Jo", "company_name": "Acme", "bid_amount": 15000, "company_website": "https://acme.example"}],
		"analysis_depth": "comprehensive"
	}`

	var req EvaluationRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "roofing", req.Project.ProjectType)
	require.Len(t, req.Bids, 1)
	assert.Equal(t, "https://acme.example", req.Bids[0].CompanyWebsite)
	assert.Equal(t, "comprehensive", req.AnalysisDepth)
}
