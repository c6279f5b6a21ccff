package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hawker-crowd/internal/cli"
	"github.com/Veraticus/hawker-crowd/internal/common"
	"github.com/Veraticus/hawker-crowd/internal/model"
)

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [hawker-id]",
		Short: "Predict crowd levels from live signals",
		Long: `Predict the current crowd level for one hawker center, or for every
mapped hawker center with --all.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runPredict,
	}

	cmd.Flags().Bool("all", false, "predict every mapped hawker center")
	cmd.Flags().Bool("json", false, "print JSON instead of a table")
	cmd.Flags().Bool("record", false, "store the predictions in the history database")

	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	asJSON, _ := cmd.Flags().GetBool("json")
	record, _ := cmd.Flags().GetBool("record")

	if all == (len(args) == 1) {
		return common.NewUserError("Pass either a hawker id or --all", common.ErrInvalidArgument)
	}

	ctx := cmd.Context()
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !a.Predictor.Loaded() {
		return common.NewUserError("No trained model found; run 'hawker train' first", common.ErrNotTrained)
	}

	var preds []model.Prediction
	if all {
		preds, err = a.Predictor.PredictAll(ctx)
		if err != nil {
			return err
		}
	} else {
		p, err := a.Predictor.Predict(ctx, args[0])
		if err != nil {
			return fmt.Errorf("prediction for %s failed: %w", args[0], err)
		}
		preds = []model.Prediction{*p}
	}

	if record && a.Store != nil {
		for i := range preds {
			if preds[i].Error != "" {
				continue
			}
			if err := a.Store.SavePrediction(ctx, &preds[i]); err != nil {
				return fmt.Errorf("failed to record prediction: %w", err)
			}
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if all {
			return enc.Encode(preds)
		}
		return enc.Encode(preds[0])
	}

	if all {
		fmt.Print(cli.PredictionTable(preds))
		return nil
	}
	fmt.Println(cli.FormatPrediction(preds[0]))
	return nil
}
