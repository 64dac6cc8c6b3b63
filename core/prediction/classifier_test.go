package prediction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/fleetmaint/core/model"
)

func TestDiagnose_Precedence(t *testing.T) {
	tests := []struct {
		name string
		snap model.Snapshot
		raw  float64
		want model.MaintenanceType
	}{
		{"electric low battery beats low fuel",
			model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(10), FuelLevel: model.Float(10)}, 2,
			model.MaintenanceBattery},
		{"low battery ignored for other types",
			model.Snapshot{Type: model.VehicleOther, BatteryLevel: model.Float(10), FuelLevel: model.Float(10)}, 2,
			model.MaintenanceFuelSystem},
		{"battery threshold is strict",
			model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(25)}, 0,
			model.MaintenanceRoutine},
		{"fuel beats mileage",
			model.Snapshot{FuelLevel: model.Float(19.9), Mileage: model.Int64(60000)}, 0,
			model.MaintenanceFuelSystem},
		{"mileage beats health",
			model.Snapshot{Mileage: model.Int64(50001), HealthScore: model.Int(40)}, 0,
			model.MaintenanceGeneral},
		{"mileage threshold is strict",
			model.Snapshot{Mileage: model.Int64(50000)}, 0,
			model.MaintenanceRoutine},
		{"health beats score",
			model.Snapshot{HealthScore: model.Int(64)}, 3,
			model.MaintenanceComprehensive},
		{"high score", model.Snapshot{}, 0.51, model.MaintenancePreventive},
		{"score threshold is strict", model.Snapshot{}, 0.5, model.MaintenanceRoutine},
		{"negative score", model.Snapshot{}, -4, model.MaintenanceRoutine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diagnose(tt.snap, tt.raw))
		})
	}
}

func TestNeedsMaintenance_Threshold(t *testing.T) {
	// logit(0.7) ~ 0.8473
	assert.False(t, NeedsMaintenance(0.84))
	assert.True(t, NeedsMaintenance(0.85))
	assert.False(t, NeedsMaintenance(-5))
}

func TestPredictedDays(t *testing.T) {
	tests := []struct {
		name string
		snap model.Snapshot
		p    float64
		want int
	}{
		{"baseline", model.Snapshot{}, 0.5, 60},
		{"certain", model.Snapshot{}, 1, 30},
		{"unlikely", model.Snapshot{}, 0, 90},
		{"rounded", model.Snapshot{}, 0.2042, 78},
		{"unhealthy", model.Snapshot{HealthScore: model.Int(55)}, 0.5, 42},
		{"health threshold is strict", model.Snapshot{HealthScore: model.Int(60)}, 0.5, 60},
		{"electric low battery", model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(15)}, 0.5, 30},
		{"other low battery", model.Snapshot{Type: model.VehicleOther, BatteryLevel: model.Float(15)}, 0.5, 60},
		{"both factors compound", model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(15), HealthScore: model.Int(10)}, 0.5, 21},
		{"both factors at certainty", model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(1), HealthScore: model.Int(0)}, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PredictedDays(tt.snap, tt.p))
		})
	}
}

func TestPredictedDays_AtLeastOne(t *testing.T) {
	worst := model.Snapshot{Type: model.VehicleElectric, BatteryLevel: model.Float(0), HealthScore: model.Int(0)}
	for _, raw := range []float64{-1e9, -10, 0, 10, 1e9, math.MaxFloat64} {
		_, days := Classify(worst, raw)
		assert.GreaterOrEqual(t, days, 1)
	}
}
