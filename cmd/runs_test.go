package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/bid-evaluator/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	runs := []model.EvaluationRun{
		{
			ID:     "0f8fad5b-d9cb-469f-a165-70867728950e",
			Status: model.RunStatusComplete,
			Request: model.EvaluationRequest{
				Project: model.ProjectDetails{Description: "Replace hail-damaged roof on a two-story colonial"},
				Bids:    []model.ContractorBid{{ID: "a"}, {ID: "b"}},
			},
			Result: &model.EvaluationResult{
				Contractors: []model.ContractorProfile{{Name: "Jo Smith", CompanyName: "Acme Roofing"}},
				Metadata:    model.EvaluationMetadata{ProcessingTimeSeconds: 12.4},
			},
			CreatedAt: created,
		},
		{
			ID:        "run-2",
			Status:    model.RunStatusRunning,
			Request:   model.EvaluationRequest{Project: model.ProjectDetails{Description: "Fence"}},
			CreatedAt: created,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "TOP PICK")
	assert.Contains(t, lines[2], "0f8fad5b")
	assert.NotContains(t, lines[2], "0f8fad5b-")
	assert.Contains(t, lines[2], "Replace hail-damaged roof o...")
	assert.Contains(t, lines[2], "Acme Roofing")
	assert.Contains(t, lines[2], "12s")
	assert.Contains(t, lines[2], "2026-03-04 10:30")
	assert.Contains(t, lines[3], "running")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "12345678", truncateID("1234567890"))
}
