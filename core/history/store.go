// Package history persists handled range estimates so they can be listed
// and exported later. Backends are JSONL, size-rotated JSONL and SQLite.
package history

import (
	"context"
	"time"

	"github.com/kilianp07/evrange/core/model"
)

// Record captures one successful estimate and the parameters that produced it.
type Record struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Model     string         `json:"model"`
	Source    string         `json:"source"`
	VehicleID string         `json:"vehicle_id,omitempty"`
	Params    map[string]any `json:"params"`
	Estimate  model.Estimate `json:"estimate"`
}

// Query defines filters for retrieving records. Zero fields do not filter.
type Query struct {
	Start     time.Time
	End       time.Time
	Model     string
	VehicleID string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Match reports whether r passes every filter of q except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Model != "" && r.Model != q.Model {
		return false
	}
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	return true
}

// limit trims res, assumed in chronological order, to the last q.Limit records.
func (q Query) limit(res []Record) []Record {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
