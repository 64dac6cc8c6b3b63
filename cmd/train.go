package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetmaint/core/factory"
	"github.com/kilianp07/fleetmaint/core/model"
	"github.com/kilianp07/fleetmaint/core/prediction"
	"github.com/kilianp07/fleetmaint/infra/logger"
	"github.com/kilianp07/fleetmaint/infra/store"
)

var trainOpts struct {
	file   string
	out    string
	epochs int
	rate   float64
	seed   int64
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the model on a snapshot file or the configured store and print the weights",
	RunE:  runTrain,
}

func init() {
	f := trainCmd.Flags()
	f.StringVarP(&trainOpts.file, "file", "f", "", "YAML or JSON snapshot file (defaults to the configured store)")
	f.StringVarP(&trainOpts.out, "out", "o", "", "write the weights to this JSON file")
	f.IntVar(&trainOpts.epochs, "epochs", 0, "override the number of epochs")
	f.Float64Var(&trainOpts.rate, "learning-rate", 0, "override the learning rate")
	f.Int64Var(&trainOpts.seed, "seed", 0, "seed for the initial weights")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadOptionalConfig()
	if err != nil {
		return err
	}
	if trainOpts.epochs > 0 {
		cfg.Engine.Trainer.Epochs = trainOpts.epochs
	}
	if trainOpts.rate > 0 {
		cfg.Engine.Trainer.LearningRate = trainOpts.rate
	}
	if cmd.Flags().Changed("seed") {
		seed := trainOpts.seed
		cfg.Engine.Seed = &seed
	}

	snaps, err := trainingSet(ctx, trainOpts.file, cfg.Store)
	if err != nil {
		return err
	}
	engine := prediction.NewEngineFromConfig(cfg.Engine, logger.New("train"))
	if err := engine.Train(ctx, snaps); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	data, err := json.MarshalIndent(engine.Model().Weights(), "", "  ")
	if err != nil {
		return err
	}
	if trainOpts.out != "" {
		if err := os.WriteFile(trainOpts.out, data, 0o644); err != nil {
			return fmt.Errorf("write weights: %w", err)
		}
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "trained on %d vehicles\n%s\n", len(snaps), data)
	return err
}

func trainingSet(ctx context.Context, file string, sc factory.ModuleConfig) ([]model.Snapshot, error) {
	if file != "" {
		snaps, err := store.LoadSnapshots(file)
		if err != nil {
			return nil, fmt.Errorf("load snapshots: %w", err)
		}
		return snaps, nil
	}
	st, err := store.New(sc)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	defer func() { _ = st.Close() }()
	return st.List(ctx, store.Filter{})
}
