package prediction

import (
	"math"

	"github.com/kilianp07/fleetmaint/core/model"
)

// Component health labels.
const (
	LabelGood             = "Good"
	LabelAttentionNeeded  = "Attention Needed"
	LabelImmediateService = "Immediate Service"
	LabelMonitor          = "Monitor"
	LabelReplaceSoon      = "Replace Soon"
	LabelCheckWear        = "Check Wear"
	LabelInspect          = "Inspect"
	LabelServiceRequired  = "Service Required"
	LabelNoEngine         = "N/A - Electric Vehicle"
	LabelNoBattery        = "N/A - Fuel Vehicle"
	LabelUnknown          = "Unknown"
)

// EstimateComponents labels each component from the raw telemetry. A
// component whose driving field is absent gets a placeholder label.
func EstimateComponents(s model.Snapshot) map[model.Component]string {
	return map[model.Component]string{
		model.ComponentEngine:  engineHealth(s),
		model.ComponentBattery: batteryHealth(s),
		model.ComponentTires:   tireHealth(s),
		model.ComponentBrakes:  brakeHealth(s),
	}
}

func clamp100(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func engineHealth(s model.Snapshot) string {
	if !s.HasFuel() {
		return LabelNoEngine
	}
	health := float64(DefaultHealthScore)
	if s.HealthScore != nil {
		health = float64(*s.HealthScore)
	}
	if *s.FuelLevel > 50 {
		health += 10
	} else {
		health -= 20
	}
	// an unreported speed is treated like a high one
	if s.Speed != nil && *s.Speed < 60 {
		health += 5
	} else {
		health -= 10
	}
	switch h := clamp100(health); {
	case h > 70:
		return LabelGood
	case h > 50:
		return LabelAttentionNeeded
	default:
		return LabelImmediateService
	}
}

func batteryHealth(s model.Snapshot) string {
	if !s.HasBattery() {
		return LabelNoBattery
	}
	switch b := *s.BatteryLevel; {
	case b > 70:
		return LabelGood
	case b > 30:
		return LabelMonitor
	default:
		return LabelReplaceSoon
	}
}

func tireHealth(s model.Snapshot) string {
	if s.Mileage == nil {
		return LabelUnknown
	}
	// integer division: wear grows per whole thousand
	wear := float64(*s.Mileage / 1000)
	switch c := clamp100(100 - wear); {
	case c > 70:
		return LabelGood
	case c > 40:
		return LabelCheckWear
	default:
		return LabelReplaceSoon
	}
}

func brakeHealth(s model.Snapshot) string {
	if s.Speed == nil {
		return LabelUnknown
	}
	switch b := clamp100(100 - *s.Speed/2); {
	case b > 80:
		return LabelGood
	case b > 60:
		return LabelInspect
	default:
		return LabelServiceRequired
	}
}
