package model

import "time"

// MarketAnalysis summarizes the bid set of one evaluation. Min, max and mean
// are computed over every input bid; an empty bid set reports zeros.
type MarketAnalysis struct {
	AverageBid          float64 `json:"average_bid"`
	MinBid              float64 `json:"min_bid"`
	MaxBid              float64 `json:"max_bid"`
	TotalContractors    int     `json:"total_contractors"`
	AnalyzedContractors int     `json:"analyzed_contractors"`
	FailedAnalyses      int     `json:"failed_analyses"`
}

// EvaluationMetadata describes how an evaluation ran.
type EvaluationMetadata struct {
	RequestID             string    `json:"request_id"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	AnalysisDepth         string    `json:"analysis_depth"`
	CompletedAt           time.Time `json:"completed_at"`
	Degraded              bool      `json:"degraded,omitempty"`
}

// EvaluationResult is the output of one evaluation. Contractors are sorted by
// OverallScore descending, ties kept in bid order.
type EvaluationResult struct {
	Recommendation string              `json:"recommendation"`
	Contractors    []ContractorProfile `json:"contractors"`
	Market         MarketAnalysis      `json:"market_analysis"`
	Metadata       EvaluationMetadata  `json:"metadata"`
}

// RunStatus represents the state of a recorded evaluation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusDegraded RunStatus = "degraded"
)

// EvaluationRun is the audit record of one evaluation request.
type EvaluationRun struct {
	ID        string            `json:"id"`
	Request   EvaluationRequest `json:"request"`
	Status    RunStatus         `json:"status"`
	Result    *EvaluationResult `json:"result,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
