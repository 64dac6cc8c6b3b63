package model

import "strings"

// VehicleType is the fleet catalogue type code of a vehicle, e.g. SEDAN or
// TRUCK. Codes are kept as reported, upper-cased and trimmed.
type VehicleType string

const (
	// VehicleElectric is the catalogue code used for battery-electric vehicles.
	VehicleElectric VehicleType = "SEDAN"
	// VehicleOther is a generic non-electric code.
	VehicleOther VehicleType = "OTHER"
)

// ParseVehicleType normalises a catalogue type code. Any code is accepted;
// only VehicleElectric gets battery rules.
func ParseVehicleType(s string) VehicleType {
	return VehicleType(strings.ToUpper(strings.TrimSpace(s)))
}

// String returns the catalogue code of the type.
func (t VehicleType) String() string { return string(t) }

// MarshalText encodes the type as its catalogue code.
func (t VehicleType) MarshalText() ([]byte, error) { return []byte(t), nil }

// UnmarshalText decodes a catalogue code. It never fails.
func (t *VehicleType) UnmarshalText(b []byte) error {
	*t = ParseVehicleType(string(b))
	return nil
}

// IsElectric reports whether battery rules apply to the vehicle.
func (t VehicleType) IsElectric() bool { return ParseVehicleType(string(t)) == VehicleElectric }

// Snapshot is the telemetry of one vehicle at a point in time. Every sensor
// field is optional; nil means the value was not reported.
type Snapshot struct {
	VehicleID string      `json:"id" yaml:"id"`
	Type      VehicleType `json:"type,omitempty" yaml:"type"`

	BatteryLevel *float64 `json:"batteryLevel,omitempty" yaml:"batteryLevel"` // percent [0,100]
	FuelLevel    *float64 `json:"fuelLevel,omitempty" yaml:"fuelLevel"`       // percent [0,100]
	HealthScore  *int     `json:"healthScore,omitempty" yaml:"healthScore"`   // composite health [0,100]
	Mileage      *int64   `json:"mileage,omitempty" yaml:"mileage"`           // odometer
	Speed        *float64 `json:"speed,omitempty" yaml:"speed"`               // current speed

	// Fleet metadata, not used for scoring.
	VehicleNumber string   `json:"vehicleNumber,omitempty" yaml:"vehicleNumber"`
	Model         string   `json:"model,omitempty" yaml:"model"`
	Manufacturer  string   `json:"manufacturer,omitempty" yaml:"manufacturer"`
	Status        string   `json:"status,omitempty" yaml:"status"`
	Latitude      *float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude     *float64 `json:"longitude,omitempty" yaml:"longitude"`
}

// HasBattery reports whether a battery level was reported.
func (s Snapshot) HasBattery() bool { return s.BatteryLevel != nil }

// HasFuel reports whether a fuel level was reported.
func (s Snapshot) HasFuel() bool { return s.FuelLevel != nil }

// Merge returns s updated with every field reported in u. Nil sensor fields
// and empty strings in u leave the stored value untouched.
func (s Snapshot) Merge(u Snapshot) Snapshot {
	if u.VehicleID != "" {
		s.VehicleID = u.VehicleID
	}
	if u.Type != "" {
		s.Type = u.Type
	}
	s.BatteryLevel = pick(u.BatteryLevel, s.BatteryLevel)
	s.FuelLevel = pick(u.FuelLevel, s.FuelLevel)
	s.HealthScore = pick(u.HealthScore, s.HealthScore)
	s.Mileage = pick(u.Mileage, s.Mileage)
	s.Speed = pick(u.Speed, s.Speed)
	s.Latitude = pick(u.Latitude, s.Latitude)
	s.Longitude = pick(u.Longitude, s.Longitude)
	s.VehicleNumber = pickString(u.VehicleNumber, s.VehicleNumber)
	s.Model = pickString(u.Model, s.Model)
	s.Manufacturer = pickString(u.Manufacturer, s.Manufacturer)
	s.Status = pickString(u.Status, s.Status)
	return s
}

func pickString(update, current string) string {
	if update != "" {
		return update
	}
	return current
}

func pick[T any](update, current *T) *T {
	if update != nil {
		return update
	}
	return current
}

// Float returns a pointer to v. It is a convenience for building snapshots.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }
