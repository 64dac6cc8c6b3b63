package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetmaint/core/model"
	"github.com/kilianp07/fleetmaint/core/prediction"
	"github.com/kilianp07/fleetmaint/infra/store"
)

var predictOpts struct {
	file    string
	weights string
	id      string
	kind    string
	battery float64
	fuel    float64
	health  int
	mileage int64
	speed   float64
	seed    int64
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict maintenance for snapshots given as flags or in a file",
	RunE:  runPredict,
}

func init() {
	f := predictCmd.Flags()
	f.StringVarP(&predictOpts.file, "file", "f", "", "YAML or JSON snapshot file")
	f.StringVarP(&predictOpts.weights, "weights", "w", "", "JSON weights file written by train")
	f.StringVar(&predictOpts.id, "id", "cli", "vehicle id")
	f.StringVar(&predictOpts.kind, "type", "", "vehicle type code (SEDAN is electric)")
	f.Float64Var(&predictOpts.battery, "battery", 0, "battery level percent")
	f.Float64Var(&predictOpts.fuel, "fuel", 0, "fuel level percent")
	f.IntVar(&predictOpts.health, "health", 0, "health score")
	f.Int64Var(&predictOpts.mileage, "mileage", 0, "odometer")
	f.Float64Var(&predictOpts.speed, "speed", 0, "current speed")
	f.Int64Var(&predictOpts.seed, "seed", 0, "seed for the initial weights")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadOptionalConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		seed := predictOpts.seed
		cfg.Engine.Seed = &seed
	}
	engine := prediction.NewEngineFromConfig(cfg.Engine, nil)
	if predictOpts.weights != "" {
		w, err := readWeights(predictOpts.weights)
		if err != nil {
			return err
		}
		if err := engine.Model().SetWeights(w); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
	}

	var snaps []model.Snapshot
	if predictOpts.file != "" {
		snaps, err = store.LoadSnapshots(predictOpts.file)
		if err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
	} else {
		snaps = []model.Snapshot{snapshotFromFlags(cmd)}
	}

	out := make(map[string]model.Prediction, len(snaps))
	for _, s := range snaps {
		out[s.VehicleID] = engine.Predict(s)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// snapshotFromFlags only sets the fields whose flag was given.
func snapshotFromFlags(cmd *cobra.Command) model.Snapshot {
	s := model.Snapshot{VehicleID: predictOpts.id, Type: model.ParseVehicleType(predictOpts.kind)}
	f := cmd.Flags()
	if f.Changed("battery") {
		s.BatteryLevel = model.Float(predictOpts.battery)
	}
	if f.Changed("fuel") {
		s.FuelLevel = model.Float(predictOpts.fuel)
	}
	if f.Changed("health") {
		s.HealthScore = model.Int(predictOpts.health)
	}
	if f.Changed("mileage") {
		s.Mileage = model.Int64(predictOpts.mileage)
	}
	if f.Changed("speed") {
		s.Speed = model.Float(predictOpts.speed)
	}
	return s
}

func readWeights(path string) (prediction.Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w prediction.Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return w, nil
}
