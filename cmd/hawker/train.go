package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hawker-crowd/internal/cli"
	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/crowd"
	"github.com/Veraticus/hawker-crowd/internal/model"
	"github.com/Veraticus/hawker-crowd/internal/trainingdata"
)

const (
	strategyHeuristic = "heuristic"
	strategySynthetic = "synthetic"
)

func trainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and save the crowd classifier",
		Long: `Generate a training table, fit the classifier, print a held-out
evaluation, and save the model bundle.

Strategies:
  heuristic  label past meal-time slots for every mapped hawker, shaping the
             signals from the current carpark snapshot (default)
  synthetic  draw records from fixed per-time-bucket ranges; needs no
             network access

Labels come from rules rather than observed crowds in both strategies, so
the evaluation measures agreement with those rules.`,
		RunE: runTrain,
	}

	cmd.Flags().String("strategy", strategyHeuristic, "training data strategy (heuristic, synthetic)")
	cmd.Flags().Int("days", 14, "heuristic: days of history to label")
	cmd.Flags().Int("samples-per-day", 8, "heuristic: samples per day (1-24)")
	cmd.Flags().Int("samples", 2000, "synthetic: number of records")
	cmd.Flags().Uint64("seed", 42, "random seed for data, split, and forest")
	cmd.Flags().Int("trees", 100, "number of trees")
	cmd.Flags().String("export", "", "also write the training table to this CSV file")
	cmd.Flags().Bool("dry-run", false, "train and evaluate without saving")

	return cmd
}

func runTrain(cmd *cobra.Command, _ []string) error {
	strategy, _ := cmd.Flags().GetString("strategy")
	days, _ := cmd.Flags().GetInt("days")
	perDay, _ := cmd.Flags().GetInt("samples-per-day")
	samples, _ := cmd.Flags().GetInt("samples")
	seed, _ := cmd.Flags().GetUint64("seed")
	trees, _ := cmd.Flags().GetInt("trees")
	exportPath, _ := cmd.Flags().GetString("export")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	if strategy != strategyHeuristic && strategy != strategySynthetic {
		return fmt.Errorf("%w: unknown strategy %q", common.ErrInvalidArgument, strategy)
	}
	if trees < 1 {
		return fmt.Errorf("%w: trees must be positive", common.ErrInvalidArgument)
	}

	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(cmd.Context(), "Training", "No model was saved.")

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Println(cli.FormatTitle("Training crowd classifier"))

	var table model.TrainingTable
	switch strategy {
	case strategySynthetic:
		gen := trainingdata.Synthetic{Seed: seed}
		table, err = gen.Generate(a.Registry.IDs(), samples)
	default:
		bar := cli.NewProgressBar(os.Stderr, len(a.Registry.IDs())*days*perDay, "Labeling slots")
		gen := trainingdata.Heuristic{
			Transit:       a.Transit,
			Registry:      a.Registry,
			Days:          days,
			SamplesPerDay: perDay,
			Progress:      cli.ProgressFunc(bar),
		}
		table, err = gen.Generate(ctx)
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("failed to generate training data: %w", err)
	}
	fmt.Println(cli.FormatInfo(fmt.Sprintf("Generated %d records for %d hawker centers", len(table), len(a.Registry.IDs()))))

	if exportPath != "" {
		if err := exportTable(exportPath, table); err != nil {
			return err
		}
		fmt.Println(cli.FormatSuccess(fmt.Sprintf("Training data saved to %s", exportPath)))
	}

	cfg := crowd.DefaultTrainConfig()
	cfg.Source = strategy
	cfg.SplitSeed = seed
	cfg.Forest.Seed = seed
	cfg.Forest.NumTrees = trees

	report, err := a.Predictor.Train(ctx, table, cfg)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return common.NewUserError("Training interrupted", err)
		}
		return fmt.Errorf("training failed: %w", err)
	}
	fmt.Println(cli.FormatReport(report))

	if dryRun {
		fmt.Println(cli.FormatWarning("Dry run: model not saved"))
		return nil
	}
	if err := a.Predictor.Save(a.ModelPath); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Model saved to %s", a.ModelPath)))
	return nil
}

func exportTable(path string, table model.TrainingTable) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close export file: %w", closeErr)
		}
	}()

	if err := trainingdata.WriteCSV(f, table); err != nil {
		return fmt.Errorf("failed to export training data: %w", err)
	}
	return nil
}
