package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pricetrack"
	"pricetrack/config"
	pricetrackmsgpack "pricetrack/msgpack"
)

var (
	unitsFamilies []string
	unitsType     string
	exportDataSet int64
	exportOutput  string

	unitsCmd = &cobra.Command{
		Use:         "units",
		Short:       "List the unit catalog",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noDatabase: "true"},
		RunE:        runUnits,
	}
	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Write a data set with its full price history to a file",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	inspectCmd = &cobra.Command{
		Use:         "inspect FILE",
		Short:       "Summarise an export file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{noDatabase: "true"},
		RunE:        runInspect,
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	configInitCmd = &cobra.Command{
		Use:         "init",
		Short:       "Write a config file with default settings",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noDatabase: "true"},
		// the file may not exist or be valid yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
)

func init() {
	unitsCmd.Flags().StringSliceVar(&unitsFamilies, "units", nil, "restrict to unit families: metric, imperial, us_customary")
	unitsCmd.Flags().StringVarP(&unitsType, "type", "t", "", "restrict to a quantity type: item, weight, volume")

	exportCmd.Flags().Int64VarP(&exportDataSet, "data-set", "d", 0, "data set id")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file")
	exportCmd.MarkFlagRequired("data-set")
	exportCmd.MarkFlagRequired("output")

	configCmd.AddCommand(configInitCmd)
}

func runUnits(cmd *cobra.Command, args []string) error {
	units := pricetrack.AllUnits()
	if len(unitsFamilies) > 0 || unitsType != "" {
		var enabled pricetrack.UnitFamily
		for _, f := range unitsFamilies {
			switch strings.ToLower(f) {
			case "metric":
				enabled |= pricetrack.FamilyMetric
			case "imperial":
				enabled |= pricetrack.FamilyImperial
			case "us", "us_customary":
				enabled |= pricetrack.FamilyUSCustomary
			default:
				return fmt.Errorf("unknown unit family %q", f)
			}
		}
		if enabled == 0 {
			enabled = pricetrack.FamilyMetric
		}
		types := []pricetrack.QuantityType{pricetrack.QuantityItem, pricetrack.QuantityWeight, pricetrack.QuantityVolume}
		if unitsType != "" {
			qt, err := pricetrack.ParseQuantityType(unitsType)
			if err != nil {
				return err
			}
			types = []pricetrack.QuantityType{qt}
		}
		units = nil
		for _, qt := range types {
			us, err := pricetrack.UnitsFor(qt, enabled, true)
			if err != nil {
				return err
			}
			units = append(units, us...)
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYMBOL\tTYPE\tFAMILIES\tFACTOR\tDISPLAY ONLY")
	for _, u := range units {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%g\t%t\n", int(u), u, u.QuantityType(), u.Families(), u.Factor(), u.DisplayOnly())
	}
	return w.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	snap := pricetrackmsgpack.Snapshot{}
	var err error
	if snap.DataSet, err = state.store.DataSet(ctx, exportDataSet); err != nil {
		return err
	}
	if snap.Items, err = state.store.Items(ctx, exportDataSet); err != nil {
		return err
	}
	if snap.Sources, err = state.store.Sources(ctx, exportDataSet); err != nil {
		return err
	}
	if snap.Prices, err = state.store.AllPrices(ctx, exportDataSet); err != nil {
		return err
	}
	if snap.History, err = state.store.AllHistory(ctx, exportDataSet); err != nil {
		return err
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	id, err := pricetrackmsgpack.Export(bw, snap)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	state.logger.Info("data set exported", "data_set_id", exportDataSet, "export_id", id, "path", exportOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "export %s written to %s\n", id, exportOutput)
	return f.Close()
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := pricetrackmsgpack.Import(f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "export %s\n", snap.ExportID)
	fmt.Fprintf(out, "data set %d %q (%s)\n", snap.DataSet.ID, snap.DataSet.Name, snap.DataSet.Currency)
	fmt.Fprintf(out, "%d items, %d sources, %d prices, %d history entries\n",
		len(snap.Items), len(snap.Sources), len(snap.Prices), len(snap.History))
	return nil
}
