package prediction

import "github.com/kilianp07/fleetmaint/core/model"

var recommendedActions = map[model.MaintenanceType][]string{
	model.MaintenanceBattery: {
		"Check battery connections",
		"Test battery capacity",
		"Clean terminals",
		"Inspect cooling system",
	},
	model.MaintenanceFuelSystem: {
		"Inspect fuel pump",
		"Check fuel filter",
		"Test injectors",
		"Examine fuel lines",
	},
	model.MaintenanceGeneral: {
		"Oil change",
		"Filter replacement",
		"Tire rotation",
		"Fluid level checks",
	},
	model.MaintenanceComprehensive: {
		"Full diagnostic scan",
		"Fluid level checks",
		"Safety inspection",
		"Component wear analysis",
	},
	model.MaintenancePreventive: {
		"Scheduled maintenance",
		"System calibration",
		"Performance optimization",
		"Software update",
	},
}

var defaultActions = []string{
	"Regular monitoring",
	"Routine checkup",
	"Performance evaluation",
}

// RecommendedActions returns the ordered checklist for a maintenance type.
// The returned slice is a copy and may be modified by the caller.
func RecommendedActions(t model.MaintenanceType) []string {
	src, ok := recommendedActions[t]
	if !ok {
		src = defaultActions
	}
	cp := make([]string, len(src))
	copy(cp, src)
	return cp
}
