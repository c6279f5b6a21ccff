package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/hawker-crowd/internal/cli"
	"github.com/Veraticus/hawker-crowd/internal/registry"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Inspect and update hawker mappings",
		Long: `Each hawker center maps to the carparks and bus stops whose live data
describes it. Mappings are saved with the model bundle.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current mappings",
		Args:  cobra.NoArgs,
		RunE:  runMappingsShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Replace mappings with the stored hawker centers",
		Args:  cobra.NoArgs,
		RunE:  runMappingsSync,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace mappings from a JSON file",
		Long: `Replace mappings from a JSON object of hawker id to mapping, the same
body POST /update-mappings accepts:

  {"HC001": {"name": "Old Airport Road Food Centre",
             "carparks": ["CP001"], "bus_stops": ["83059"]}}`,
		Args: cobra.ExactArgs(1),
		RunE: runMappingsImport,
	})

	return cmd
}

func runMappingsShow(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Println(cli.FormatTitle("Hawker mappings"))
	for _, id := range a.Registry.IDs() {
		m, _ := a.Registry.Get(id)
		fmt.Printf("%s %-8s %s\n", cli.HawkerIcon, id, m.Name)
		fmt.Printf("    %s %s\n", cli.CarIcon, joinOrNone(m.Carparks))
		fmt.Printf("    %s %s\n", cli.BusIcon, joinOrNone(m.BusStops))
	}
	return nil
}

func runMappingsSync(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	n, persisted, err := a.SyncMappings(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Synced %d hawker centers", n)))
	if !persisted {
		fmt.Println(cli.FormatWarning("No trained model; mappings were not saved"))
	}
	return nil
}

func runMappingsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open mappings file: %w", err)
	}
	defer func() { _ = f.Close() }()

	mappings, err := registry.Decode(f)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	persisted, err := a.Predictor.UpdateMappings(mappings, a.ModelPath)
	if err != nil {
		return err
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d hawker centers", len(mappings))))
	if !persisted {
		fmt.Println(cli.FormatWarning("No trained model; mappings were not saved"))
	}
	return nil
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return cli.StyleWarning("none")
	}
	return strings.Join(ids, ", ")
}
