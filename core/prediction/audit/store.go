// Package audit keeps a queryable trail of maintenance predictions.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fleetmaint/core/model"
)

// Record captures one prediction as it was returned to the caller.
type Record struct {
	ID         string           `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	VehicleID  string           `json:"vehicle_id"`
	RawScore   float64          `json:"raw_score"`
	Prediction model.Prediction `json:"prediction"`
}

// NewRecord stamps a prediction with a fresh identifier.
func NewRecord(vehicleID string, raw float64, p model.Prediction, at time.Time) Record {
	return Record{
		ID:         uuid.NewString(),
		Timestamp:  at,
		VehicleID:  vehicleID,
		RawScore:   raw,
		Prediction: p,
	}
}

// Query filters records. Zero values disable the matching filter.
type Query struct {
	Start           time.Time
	End             time.Time
	VehicleID       string
	MaintenanceType model.MaintenanceType
	OnlyNeeded      bool
}

// Match reports whether r passes the filters of q.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	if q.MaintenanceType != "" && r.Prediction.MaintenanceType != q.MaintenanceType {
		return false
	}
	if q.OnlyNeeded && !r.Prediction.NeedsMaintenance {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
