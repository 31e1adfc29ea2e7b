package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pricetrack"
)

var (
	dsCurrency    string
	dsFamilies    []string
	dsNotes       string
	itemDataSet   int64
	itemUnit      string
	itemMultipack bool
	itemNotes     string
	srcDataSet    int64
	srcLoyalty    string
	srcPercent    float64
	srcNotes      string

	dataSetCmd = &cobra.Command{
		Use:     "dataset",
		Aliases: []string{"ds"},
		Short:   "Manage data sets",
	}
	dataSetAddCmd = &cobra.Command{
		Use:   "add NAME",
		Short: "Create a data set",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataSetAdd,
	}
	dataSetListCmd = &cobra.Command{
		Use:   "list",
		Short: "List data sets",
		Args:  cobra.NoArgs,
		RunE:  runDataSetList,
	}
	dataSetDeleteCmd = &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a data set with all its items, sources and prices",
		Args:  cobra.ExactArgs(1),
		RunE:  runDataSetDelete,
	}

	itemCmd = &cobra.Command{
		Use:   "item",
		Short: "Manage items",
	}
	itemAddCmd = &cobra.Command{
		Use:   "add NAME",
		Short: "Create an item sold by the given default unit",
		Args:  cobra.ExactArgs(1),
		RunE:  runItemAdd,
	}
	itemListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the items of a data set",
		Args:  cobra.NoArgs,
		RunE:  runItemList,
	}

	sourceCmd = &cobra.Command{
		Use:   "source",
		Short: "Manage sources (shops)",
	}
	sourceAddCmd = &cobra.Command{
		Use:   "add NAME",
		Short: "Create a source",
		Args:  cobra.ExactArgs(1),
		RunE:  runSourceAdd,
	}
	sourceListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the sources of a data set",
		Args:  cobra.NoArgs,
		RunE:  runSourceList,
	}
)

func init() {
	dataSetAddCmd.Flags().StringVar(&dsCurrency, "currency", "EUR", "ISO 4217 currency code")
	dataSetAddCmd.Flags().StringSliceVar(&dsFamilies, "units", []string{"metric"}, "unit families: metric, imperial, us_customary")
	dataSetAddCmd.Flags().StringVar(&dsNotes, "notes", "", "free text")
	dataSetCmd.AddCommand(dataSetAddCmd, dataSetListCmd, dataSetDeleteCmd)

	itemAddCmd.Flags().StringVar(&itemUnit, "unit", "each", "default unit symbol, e.g. kg or pint")
	itemAddCmd.Flags().BoolVar(&itemMultipack, "multipack", false, "usually sold in packs of several")
	itemAddCmd.Flags().StringVar(&itemNotes, "notes", "", "free text")
	for _, c := range []*cobra.Command{itemAddCmd, itemListCmd} {
		c.Flags().Int64VarP(&itemDataSet, "data-set", "d", 0, "data set id")
		c.MarkFlagRequired("data-set")
	}
	itemCmd.AddCommand(itemAddCmd, itemListCmd)

	sourceAddCmd.Flags().StringVar(&srcLoyalty, "loyalty", "none", "loyalty scheme: none, bonus, discount")
	sourceAddCmd.Flags().Float64Var(&srcPercent, "percent", 0, "loyalty percentage")
	sourceAddCmd.Flags().StringVar(&srcNotes, "notes", "", "free text")
	for _, c := range []*cobra.Command{sourceAddCmd, sourceListCmd} {
		c.Flags().Int64VarP(&srcDataSet, "data-set", "d", 0, "data set id")
		c.MarkFlagRequired("data-set")
	}
	sourceCmd.AddCommand(sourceAddCmd, sourceListCmd)
}

func runDataSetAdd(cmd *cobra.Command, args []string) error {
	ds := pricetrack.DataSet{Name: args[0], Currency: dsCurrency, Notes: dsNotes}
	for _, f := range dsFamilies {
		switch strings.ToLower(f) {
		case "metric":
			ds.Metric = true
		case "imperial":
			ds.Imperial = true
		case "us", "us_customary":
			ds.USCustomary = true
		default:
			return fmt.Errorf("unknown unit family %q", f)
		}
	}
	ds, err := state.store.CreateDataSet(cmd.Context(), ds)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created data set %d\n", ds.ID)
	return nil
}

func runDataSetList(cmd *cobra.Command, args []string) error {
	sets, err := state.store.DataSets(cmd.Context())
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCURRENCY\tUNITS\tNOTES")
	for _, ds := range sets {
		families, err := ds.Families()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", ds.ID, ds.Name, ds.Currency, families&^pricetrack.FamilyItem, ds.Notes)
	}
	return w.Flush()
}

func runDataSetDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return state.store.DeleteDataSet(cmd.Context(), id)
}

func runItemAdd(cmd *cobra.Command, args []string) error {
	ds, err := state.store.DataSet(cmd.Context(), itemDataSet)
	if err != nil {
		return err
	}
	unit, err := lookupUnit(ds, itemUnit)
	if err != nil {
		return err
	}
	it, err := state.store.CreateItem(cmd.Context(), pricetrack.Item{
		DataSetID:   ds.ID,
		Name:        args[0],
		DefaultUnit: unit,
		Multipack:   itemMultipack,
		Notes:       itemNotes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created item %d\n", it.ID)
	return nil
}

func runItemList(cmd *cobra.Command, args []string) error {
	items, err := state.store.Items(cmd.Context(), itemDataSet)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSOLD BY\tUNIT\tMULTIPACK")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", it.ID, it.Name, it.QuantityType(), it.DefaultUnit, it.Multipack)
	}
	return w.Flush()
}

func runSourceAdd(cmd *cobra.Command, args []string) error {
	lt, err := pricetrack.ParseLoyaltyType(srcLoyalty)
	if err != nil {
		return err
	}
	src, err := state.store.CreateSource(cmd.Context(), pricetrack.Source{
		DataSetID:      srcDataSet,
		Name:           args[0],
		Loyalty:        lt,
		LoyaltyPercent: srcPercent,
		Notes:          srcNotes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created source %d\n", src.ID)
	return nil
}

func runSourceList(cmd *cobra.Command, args []string) error {
	sources, err := state.store.Sources(cmd.Context(), srcDataSet)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tLOYALTY\tPERCENT")
	for _, s := range sources {
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\n", s.ID, s.Name, s.Loyalty, s.LoyaltyPercent)
	}
	return w.Flush()
}
