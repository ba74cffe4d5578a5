package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRequestJSON = `{
  "project_details": {"description": "Replace hail-damaged roof", "location": "Tampa, FL"},
  "contractor_bids": [
    {"contractor_id": "c1", "name": "Jo Smith", "company_name": "Acme Roofing", "bid_amount": 14000},
    {"contractor_id": "c2", "name": "Pat Lee", "bid_amount": 11000, "company_website": "https://summit.example.com"}
  ]
}`

func TestDecodeRequest_Valid(t *testing.T) {
	req, err := decodeRequest(strings.NewReader(sampleRequestJSON))
	require.NoError(t, err)

	assert.Equal(t, "Replace hail-damaged roof", req.Project.Description)
	require.Len(t, req.Bids, 2)
	assert.Equal(t, "Acme Roofing", req.Bids[0].CompanyName)
	assert.InDelta(t, 11000, req.Bids[1].BidAmount, 0.001)
}

func TestDecodeRequest_EmptyBidsAllowed(t *testing.T) {
	req, err := decodeRequest(strings.NewReader(`{"project_details": {"description": "Fence repair"}, "contractor_bids": []}`))
	require.NoError(t, err)
	assert.Empty(t, req.Bids)
}

func TestDecodeRequest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"project_details":`},
		{"missing description", `{"project_details": {}, "contractor_bids": []}`},
		{"missing contractor id", `{"project_details": {"description": "x"}, "contractor_bids": [{"name": "A", "bid_amount": 1}]}`},
		{"negative amount", `{"project_details": {"description": "x"}, "contractor_bids": [{"contractor_id": "a", "name": "A", "bid_amount": -5}]}`},
		{"bad website", `{"project_details": {"description": "x"}, "contractor_bids": [{"contractor_id": "a", "name": "A", "bid_amount": 5, "company_website": "not a url"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeRequest(strings.NewReader(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestOpenInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleRequestJSON), 0o600))

	in, err := openInput(path)
	require.NoError(t, err)
	defer in.Close() //nolint:errcheck

	req, err := decodeRequest(in)
	require.NoError(t, err)
	assert.Len(t, req.Bids, 2)

	_, err = openInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
