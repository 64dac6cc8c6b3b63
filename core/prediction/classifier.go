package prediction

import (
	"math"

	"github.com/kilianp07/fleetmaint/core/model"
)

// Diagnosis thresholds. Each rule only fires on a reported value; defaults
// never trigger a diagnosis.
const (
	batteryServiceLevel  = 25.0
	fuelCheckLevel       = 20.0
	generalMileage       = 50000
	comprehensiveHealth  = 65
	preventiveScore      = 0.5
	maintenanceThreshold = 0.7

	baseDays         = 30.0
	daysSpan         = 60.0
	unhealthyScore   = 60
	unhealthyFactor  = 0.7
	lowBatteryLevel  = 20.0
	lowBatteryFactor = 0.5
	minPredictedDays = 1
)

// NeedsMaintenance reports whether the maintenance probability crosses the
// alert threshold. It is independent of the diagnosed category, so a
// "Battery Service" diagnosis can come with a false flag.
func NeedsMaintenance(raw float64) bool {
	return Probability(raw) > maintenanceThreshold
}

// Classify diagnoses the snapshot and estimates the days until maintenance is due.
func Classify(s model.Snapshot, raw float64) (model.MaintenanceType, int) {
	return Diagnose(s, raw), PredictedDays(s, Probability(raw))
}

// Diagnose picks the maintenance category. Rules are evaluated in order and
// the first match wins.
func Diagnose(s model.Snapshot, raw float64) model.MaintenanceType {
	switch {
	case s.Type.IsElectric() && s.HasBattery() && *s.BatteryLevel < batteryServiceLevel:
		return model.MaintenanceBattery
	case s.HasFuel() && *s.FuelLevel < fuelCheckLevel:
		return model.MaintenanceFuelSystem
	case s.Mileage != nil && *s.Mileage > generalMileage:
		return model.MaintenanceGeneral
	case s.HealthScore != nil && *s.HealthScore < comprehensiveHealth:
		return model.MaintenanceComprehensive
	case raw > preventiveScore:
		return model.MaintenancePreventive
	default:
		return model.MaintenanceRoutine
	}
}

// PredictedDays converts a maintenance probability into a due date in days.
// Unhealthy vehicles and electric vehicles with a nearly empty battery are
// brought forward; the factors compound and each step truncates.
func PredictedDays(s model.Snapshot, probability float64) int {
	days := int(math.Round(baseDays + (1-probability)*daysSpan))
	if s.HealthScore != nil && *s.HealthScore < unhealthyScore {
		days = int(float64(days) * unhealthyFactor)
	}
	if s.Type.IsElectric() && s.HasBattery() && *s.BatteryLevel < lowBatteryLevel {
		days = int(float64(days) * lowBatteryFactor)
	}
	if days < minPredictedDays {
		return minPredictedDays
	}
	return days
}
