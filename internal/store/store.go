// Package store records evaluation runs for later inspection. It is audit
// history only: nothing in an evaluation reads from it.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bid-evaluator/internal/model"
)

// Supported drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// Store defines the persistence interface for evaluation runs.
type Store interface {
	// CreateRun records a running evaluation under id.
	CreateRun(ctx context.Context, id string, req model.EvaluationRequest) (*model.EvaluationRun, error)
	// FinishRun stores the result and final status of a run.
	FinishRun(ctx context.Context, id string, status model.RunStatus, result *model.EvaluationResult) error
	GetRun(ctx context.Context, id string) (*model.EvaluationRun, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.EvaluationRun, error)

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	Driver string
	DSN    string
	Pool   *PoolConfig
}

// Open returns the configured store with its schema migrated, or nil when
// the driver is "none" or empty.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		s, err = NewSQLite(cfg.DSN)
	case DriverPostgres:
		s, err = NewPostgres(ctx, cfg.DSN, cfg.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// decodeRun fills the JSON columns shared by both backends.
func decodeRun(r *model.EvaluationRun, reqJSON, resultJSON []byte) error {
	if err := json.Unmarshal(reqJSON, &r.Request); err != nil {
		return eris.Wrapf(err, "store: unmarshal request of run %s", r.ID)
	}
	if len(resultJSON) > 0 {
		r.Result = &model.EvaluationResult{}
		if err := json.Unmarshal(resultJSON, r.Result); err != nil {
			return eris.Wrapf(err, "store: unmarshal result of run %s", r.ID)
		}
	}
	return nil
}
