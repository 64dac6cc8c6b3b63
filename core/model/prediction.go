package model

// MaintenanceType is the diagnosis category attached to a prediction.
type MaintenanceType string

const (
	MaintenanceBattery       MaintenanceType = "Battery Service"
	MaintenanceFuelSystem    MaintenanceType = "Fuel System Check"
	MaintenanceGeneral       MaintenanceType = "General Maintenance"
	MaintenanceComprehensive MaintenanceType = "Comprehensive Check"
	MaintenancePreventive    MaintenanceType = "Preventive Maintenance"
	MaintenanceRoutine       MaintenanceType = "Routine Checkup"
)

// MaintenanceTypes lists every category in classifier precedence order.
var MaintenanceTypes = []MaintenanceType{
	MaintenanceBattery,
	MaintenanceFuelSystem,
	MaintenanceGeneral,
	MaintenanceComprehensive,
	MaintenancePreventive,
	MaintenanceRoutine,
}

// Component names a vehicle sub-system with its own health label.
type Component string

const (
	ComponentEngine  Component = "engine"
	ComponentBattery Component = "battery"
	ComponentTires   Component = "tires"
	ComponentBrakes  Component = "brakes"
)

// Prediction is the structured maintenance forecast for one snapshot.
type Prediction struct {
	NeedsMaintenance   bool                 `json:"needsMaintenance"`
	MaintenanceType    MaintenanceType      `json:"maintenanceType"`
	PredictedDays      int                  `json:"predictedDays"`
	Probability        float64              `json:"probability"`
	Confidence         float64              `json:"confidence"`
	Components         map[Component]string `json:"components"`
	RecommendedActions []string             `json:"recommendedActions"`
}
