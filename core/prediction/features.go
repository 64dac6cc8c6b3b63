package prediction

import (
	"math"

	"github.com/kilianp07/fleetmaint/core/model"
)

// Feature names one entry of the feature vector and the matching weight.
type Feature string

const (
	FeatureBattery Feature = "batteryLevel"
	FeatureFuel    Feature = "fuelLevel"
	FeatureHealth  Feature = "healthScore"
	FeatureMileage Feature = "mileage"
	FeatureSpeed   Feature = "speed"
	FeatureAge     Feature = "ageFactor"
)

// Schema is the single ordering shared by feature vectors and weights.
var Schema = [NumFeatures]Feature{
	FeatureBattery,
	FeatureFuel,
	FeatureHealth,
	FeatureMileage,
	FeatureSpeed,
	FeatureAge,
}

// NumFeatures is the length of a feature vector.
const NumFeatures = 6

// Defaults applied to absent telemetry.
const (
	DefaultBatteryLevel = 100.0
	DefaultFuelLevel    = 100.0
	DefaultHealthScore  = 80
	DefaultMileage      = 0
	DefaultSpeed        = 0.0
)

// Normalisation constants.
const (
	percentScale = 100.0
	mileageScale = 200000.0
	speedScale   = 120.0
	ageMileage   = 150000.0
)

// FeatureVector is a normalised snapshot in Schema order.
type FeatureVector [NumFeatures]float64

// Get returns the value of the named feature.
func (f FeatureVector) Get(name Feature) float64 {
	for i, n := range Schema {
		if n == name {
			return f[i]
		}
	}
	return 0
}

// Extract normalises a snapshot. Absent fields take their documented default.
func Extract(s model.Snapshot) FeatureVector {
	battery := DefaultBatteryLevel
	if s.HasBattery() {
		battery = *s.BatteryLevel
	}
	fuel := DefaultFuelLevel
	if s.HasFuel() {
		fuel = *s.FuelLevel
	}
	health := DefaultHealthScore
	if s.HealthScore != nil {
		health = *s.HealthScore
	}
	var mileage int64 = DefaultMileage
	if s.Mileage != nil {
		mileage = *s.Mileage
	}
	speed := DefaultSpeed
	if s.Speed != nil {
		speed = *s.Speed
	}

	// vehicles past ageMileage count as maximally aged
	age := math.Min(1.0, float64(mileage)/ageMileage)

	return FeatureVector{
		battery / percentScale,
		fuel / percentScale,
		float64(health) / percentScale,
		float64(mileage) / mileageScale,
		speed / speedScale,
		age,
	}
}
