package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/fleetmaint/core/model"
)

func TestExtract_Defaults(t *testing.T) {
	f := Extract(model.Snapshot{})
	assert.Equal(t, FeatureVector{1, 1, 0.8, 0, 0, 0}, f)
}

func TestExtract_Normalisation(t *testing.T) {
	s := model.Snapshot{
		BatteryLevel: model.Float(50),
		FuelLevel:    model.Float(25),
		HealthScore:  model.Int(70),
		Mileage:      model.Int64(75000),
		Speed:        model.Float(60),
	}
	f := Extract(s)
	assert.InDelta(t, 0.5, f.Get(FeatureBattery), 1e-12)
	assert.InDelta(t, 0.25, f.Get(FeatureFuel), 1e-12)
	assert.InDelta(t, 0.7, f.Get(FeatureHealth), 1e-12)
	assert.InDelta(t, 0.375, f.Get(FeatureMileage), 1e-12)
	assert.InDelta(t, 0.5, f.Get(FeatureSpeed), 1e-12)
	assert.InDelta(t, 0.5, f.Get(FeatureAge), 1e-12)
}

func TestExtract_AgeFactorClamped(t *testing.T) {
	f := Extract(model.Snapshot{Mileage: model.Int64(300000)})
	assert.InDelta(t, 1.5, f.Get(FeatureMileage), 1e-12)
	assert.Equal(t, 1.0, f.Get(FeatureAge))
}

func TestExtract_TypeIgnored(t *testing.T) {
	a := Extract(model.Snapshot{Type: model.VehicleElectric, FuelLevel: model.Float(40)})
	b := Extract(model.Snapshot{Type: model.VehicleOther, FuelLevel: model.Float(40)})
	assert.Equal(t, a, b)
}

func TestSchemaMatchesWeights(t *testing.T) {
	m := NewSeededModel(1)
	w := m.Weights()
	assert.Len(t, w, NumFeatures)
	for _, name := range Schema {
		_, ok := w[name]
		assert.True(t, ok, "missing weight for %s", name)
	}
}
