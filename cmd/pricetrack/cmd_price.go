package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pricetrack"
)

var (
	priceDataSet  int64
	priceItem     int64
	priceSource   int64
	priceAmount   float64
	priceCount    int
	priceQuantity float64
	priceUnit     string
	priceNotes    string
	priceDate     string

	priceCmd = &cobra.Command{
		Use:   "price",
		Short: "Record and correct prices",
	}
	priceSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Set the current price of an item at a source",
		Args:  cobra.NoArgs,
		RunE:  runPriceSet,
	}
	priceConfirmCmd = &cobra.Command{
		Use:   "confirm",
		Short: "Mark the current price as seen again today",
		Args:  cobra.NoArgs,
		RunE:  runPriceConfirm,
	}
	priceDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "Delete the current price, keeping its history",
		Args:  cobra.NoArgs,
		RunE:  runPriceDelete,
	}
	priceRevertCmd = &cobra.Command{
		Use:   "revert",
		Short: "Undo the latest change to a price",
		Args:  cobra.NoArgs,
		RunE:  runPriceRevert,
	}
	priceHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "Show the price history of an item at a source",
		Args:  cobra.NoArgs,
		RunE:  runPriceHistory,
	}
)

func init() {
	for _, c := range []*cobra.Command{priceSetCmd, priceConfirmCmd, priceDeleteCmd, priceRevertCmd, priceHistoryCmd} {
		c.Flags().Int64VarP(&priceDataSet, "data-set", "d", 0, "data set id")
		c.Flags().Int64VarP(&priceItem, "item", "i", 0, "item id")
		c.Flags().Int64VarP(&priceSource, "source", "s", 0, "source id")
		c.MarkFlagRequired("data-set")
		c.MarkFlagRequired("item")
		c.MarkFlagRequired("source")
	}
	priceSetCmd.Flags().Float64VarP(&priceAmount, "price", "p", 0, "shelf price")
	priceSetCmd.Flags().IntVar(&priceCount, "count", 1, "number of packs the price buys")
	priceSetCmd.Flags().Float64VarP(&priceQuantity, "quantity", "q", 1, "amount in one pack")
	priceSetCmd.Flags().StringVarP(&priceUnit, "unit", "u", "", "unit of the quantity (default: the item's unit)")
	priceSetCmd.Flags().StringVar(&priceNotes, "notes", "", "free text")
	priceSetCmd.Flags().StringVar(&priceDate, "date", "", "date the price was seen, YYYY-MM-DD (default: now)")
	priceSetCmd.MarkFlagRequired("price")

	priceCmd.AddCommand(priceSetCmd, priceConfirmCmd, priceDeleteCmd, priceRevertCmd, priceHistoryCmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func lookupUnit(ds pricetrack.DataSet, symbol string) (pricetrack.Unit, error) {
	families, err := ds.Families()
	if err != nil {
		return 0, err
	}
	u, ok := pricetrack.UnitBySymbol(symbol, families)
	if !ok {
		return 0, fmt.Errorf("unit %q is not available in data set %q (%s)", symbol, ds.Name, families)
	}
	return u, nil
}

func currentPrice(ctx context.Context) (*pricetrack.Price, error) {
	prices, err := state.store.Prices(ctx, priceDataSet, priceItem)
	if err != nil {
		return nil, err
	}
	for _, p := range prices {
		if p.SourceID == priceSource {
			return &p, nil
		}
	}
	return nil, nil
}

// checkPriceTarget rejects user input the ledger would otherwise report as
// an internal error or, for a foreign item or source, store under the wrong
// data set.
func checkPriceTarget(ds pricetrack.DataSet, item pricetrack.Item, src pricetrack.Source, unit pricetrack.Unit) error {
	if item.DataSetID != ds.ID {
		return fmt.Errorf("item %d belongs to data set %d, not %d", item.ID, item.DataSetID, ds.ID)
	}
	if src.DataSetID != ds.ID {
		return fmt.Errorf("source %d belongs to data set %d, not %d", src.ID, src.DataSetID, ds.ID)
	}
	if unit.QuantityType() != item.QuantityType() {
		return fmt.Errorf("item %q is sold by %s, %s measures %s", item.Name, item.QuantityType(), unit, unit.QuantityType())
	}
	return nil
}

func runPriceSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ds, err := state.store.DataSet(ctx, priceDataSet)
	if err != nil {
		return err
	}
	item, err := state.store.Item(ctx, priceItem)
	if err != nil {
		return err
	}
	src, err := state.store.Source(ctx, priceSource)
	if err != nil {
		return err
	}
	unit := item.DefaultUnit
	if priceUnit != "" {
		if unit, err = lookupUnit(ds, priceUnit); err != nil {
			return err
		}
	}
	if err := checkPriceTarget(ds, item, src, unit); err != nil {
		return err
	}

	seen := time.Now()
	if priceDate != "" {
		if seen, err = time.ParseInLocation(time.DateOnly, priceDate, time.Local); err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
	}

	p := pricetrack.Price{
		DataSetID:   ds.ID,
		ItemID:      item.ID,
		SourceID:    src.ID,
		Price:       priceAmount,
		Count:       priceCount,
		Quantity:    pricetrack.Quantity{Value: priceQuantity, Unit: unit},
		ConfirmedAt: seen,
		ModifiedAt:  time.Now(),
		Notes:       priceNotes,
		ItemUnit:    item.DefaultUnit,
	}
	if _, err := pricetrack.CalculateBaseUnitPrice(p.Price, p.Count, p.Quantity); err != nil {
		return err
	}
	stored, err := state.ledger.UpdateOrInsertPrice(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "price %d: %s for %d × %s\n", stored.ID,
		pricetrack.FormatPrice(stored.Price, ds.Currency, state.tag), stored.Count,
		pricetrack.FormatQuantity(stored.Quantity, state.tag))
	return nil
}

func runPriceConfirm(cmd *cobra.Command, args []string) error {
	cur, err := currentPrice(cmd.Context())
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("item %d has no price at source %d: %w", priceItem, priceSource, pricetrack.ErrNotFound)
	}
	cur.ConfirmedAt = time.Now()
	if _, err := state.ledger.UpdateOrInsertPrice(cmd.Context(), *cur); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "price %d confirmed\n", cur.ID)
	return nil
}

func runPriceDelete(cmd *cobra.Command, args []string) error {
	cur, err := currentPrice(cmd.Context())
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("item %d has no price at source %d: %w", priceItem, priceSource, pricetrack.ErrNotFound)
	}
	return state.ledger.DeletePrice(cmd.Context(), *cur)
}

func runPriceRevert(cmd *cobra.Command, args []string) error {
	restored, err := state.ledger.RevertLast(cmd.Context(), priceDataSet, priceItem, priceSource)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "price %d reverted to %g, confirmed %s\n",
		restored.ID, restored.Price, restored.ConfirmedAt.Local().Format(time.DateOnly))
	return nil
}

func runPriceHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ds, err := state.store.DataSet(ctx, priceDataSet)
	if err != nil {
		return err
	}
	hist, err := state.ledger.History(ctx, priceDataSet, priceItem, priceSource)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tPRICE ID\tPRICE\tQUANTITY\tCONFIRMED\tMODIFIED")
	for _, ev := range pricetrack.Timeline(hist) {
		if ev.Kind == pricetrack.EventDeleted {
			fmt.Fprintf(w, "\t%d\t(deleted)\t\t\t\n", ev.Entry.PriceID)
			continue
		}
		h := ev.Entry
		fmt.Fprintf(w, "%d\t%d\t%s\t%d × %s\t%s\t%s\n", h.ID, h.PriceID,
			pricetrack.FormatPrice(h.Price, ds.Currency, state.tag), h.Count,
			pricetrack.FormatQuantity(h.Quantity, state.tag),
			h.ConfirmedAt.Local().Format(time.DateOnly), h.ModifiedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
