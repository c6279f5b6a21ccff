package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/hawker-crowd/internal/cli"
	"github.com/Veraticus/hawker-crowd/internal/collector"
	"github.com/Veraticus/hawker-crowd/internal/config"
)

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect hawker center metadata",
		Long: `Find hawker centers with Google Places, attach nearby carparks and bus
stops from LTA DataMall, and store the results.

The database is snapshotted before stored centers are replaced, and a JSON
backup of the collected documents is written alongside it.`,
		RunE: runCollect,
	}

	cmd.Flags().String("query", collector.DefaultQuery, "place search query")
	cmd.Flags().Int("amount", collector.DefaultAmount, "maximum hawker centers to collect")
	cmd.Flags().Float64("radius", collector.DefaultRadius, "carpark and bus stop search radius in meters")
	cmd.Flags().String("backup", "", "JSON backup path (default: config dir)")
	cmd.Flags().Bool("no-snapshot", false, "skip the database snapshot")
	cmd.Flags().Bool("sync", true, "update the model's mappings with the collected centers")

	_ = viper.BindPFlag("collect.query", cmd.Flags().Lookup("query"))
	_ = viper.BindPFlag("collect.amount", cmd.Flags().Lookup("amount"))
	_ = viper.BindPFlag("collect.radius", cmd.Flags().Lookup("radius"))

	return cmd
}

func runCollect(cmd *cobra.Command, _ []string) error {
	backupPath, _ := cmd.Flags().GetString("backup")
	noSnapshot, _ := cmd.Flags().GetBool("no-snapshot")
	syncMappings, _ := cmd.Flags().GetBool("sync")

	handler := cli.NewInterruptHandler(os.Stderr)
	ctx := handler.HandleInterrupts(cmd.Context(), "Collection", "Stored hawker centers were not changed.")

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	searcher, err := newPlaces(ctx, a.Metrics)
	if err != nil {
		return err
	}

	cfg := collector.DefaultConfig()
	cfg.Query = viper.GetString("collect.query")
	cfg.Amount = viper.GetInt("collect.amount")
	cfg.Radius = viper.GetFloat64("collect.radius")
	if backupPath == "" {
		backupPath = filepath.Join(config.Dir(), collector.DefaultBackupFile)
	}
	cfg.BackupPath = config.ExpandPath(backupPath)
	if !noSnapshot && a.Store != nil && a.Store.Path() != ":memory:" {
		cfg.SnapshotDir = filepath.Join(filepath.Dir(a.Store.Path()), "snapshots")
	}

	fmt.Println(cli.FormatTitle("Collecting hawker centers"))

	bar := cli.NewProgressBar(os.Stderr, cfg.Amount, "Processing centers")
	var store collector.Store
	if a.Store != nil {
		store = a.Store
	}
	c, err := collector.New(cfg, searcher, a.Transit, store, collector.WithProgress(cli.ProgressFunc(bar)))
	if err != nil {
		return err
	}

	result, err := c.Run(ctx)
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}

	if result.SearchErr != nil {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Search stopped early: %v", result.SearchErr)))
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Stored %d hawker centers", len(result.Centers))))
	for _, center := range result.Centers {
		verified := 0
		for _, stop := range center.BusStops {
			if stop.Verified {
				verified++
			}
		}
		fmt.Printf("  %s %-8s %-36s %s %d  %s %d/%d\n",
			cli.HawkerIcon, center.ID, center.Name,
			cli.CarIcon, len(center.Carparks),
			cli.BusIcon, verified, len(center.BusStops))
	}
	if result.Snapshot != nil {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("%s Snapshot saved to %s", cli.FolderIcon, result.Snapshot.Path)))
	}
	if result.BackupPath != "" {
		fmt.Println(cli.FormatInfo(fmt.Sprintf("Backup written to %s", result.BackupPath)))
	}

	if !syncMappings {
		return nil
	}
	persisted, err := a.Predictor.UpdateMappings(result.Mappings(), a.ModelPath)
	if err != nil {
		return fmt.Errorf("failed to update mappings: %w", err)
	}
	if persisted {
		fmt.Println(cli.FormatSuccess("Model mappings updated"))
	} else {
		fmt.Println(cli.FormatWarning("No trained model; mappings will apply after 'hawker train'"))
	}
	return nil
}
