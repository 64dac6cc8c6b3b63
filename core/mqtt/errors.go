package mqtt

import "errors"

// ErrNoVehicleID is returned when neither the topic nor the payload identify the vehicle.
var ErrNoVehicleID = errors.New("telemetry without vehicle id")

// ErrNoPredictionTopic is returned when publishing without a configured prediction topic.
var ErrNoPredictionTopic = errors.New("prediction topic not configured")
