package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"pricetrack"
)

var (
	analyseDataSet int64
	analyseItem    int64

	analyseCmd = &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Rank the sources of an item by unit price",
		Long: `Rank the current prices of an item across sources.

Loyalty schemes are applied, prices older than the stale threshold are aged
by inflation, and each unit price is judged against the interquartile band of
the prices that are not ancient.`,
		Args: cobra.NoArgs,
		RunE: runAnalyse,
	}
)

func init() {
	analyseCmd.Flags().Int64VarP(&analyseDataSet, "data-set", "d", 0, "data set id")
	analyseCmd.Flags().Int64VarP(&analyseItem, "item", "i", 0, "item id")
	analyseCmd.MarkFlagRequired("data-set")
	analyseCmd.MarkFlagRequired("item")
}

func runAnalyse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ds, err := state.store.DataSet(ctx, analyseDataSet)
	if err != nil {
		return err
	}
	item, err := state.store.Item(ctx, analyseItem)
	if err != nil {
		return err
	}
	prices, err := state.store.Prices(ctx, ds.ID, item.ID)
	if err != nil {
		return err
	}
	sources, err := state.store.Sources(ctx, ds.ID)
	if err != nil {
		return err
	}
	families, err := ds.Families()
	if err != nil {
		return err
	}
	candidates, err := pricetrack.RelatedUnits(item.DefaultUnit, families, true)
	if err != nil {
		return err
	}

	analysis, err := pricetrack.AnalysePrices(prices, sources, state.cfg.PriceAge, state.tag, time.Now())
	if err != nil {
		return err
	}

	decimals := pricetrack.CurrencyDecimalPlaces(ds.Currency)
	out := cmd.OutOrStdout()
	if analysis.Thresholds == nil {
		fmt.Fprintln(out, "not enough recent prices to judge")
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPRICE\tPAID\tAGE\tUNIT PRICE\tJUDGEMENT")
	for _, e := range analysis.Prices {
		preferred := e.Price.Quantity.Unit
		if preferred.QuantityType() != item.QuantityType() {
			preferred = item.DefaultUnit
		}
		display, err := e.UnitPrice.WithFriendlyDenominator(preferred, decimals, candidates)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dd %s\t%s\t%s\n", e.Source.Name,
			pricetrack.FormatPrice(e.Price.Price, ds.Currency, state.tag),
			pricetrack.FormatPrice(e.AdjustedPrice, ds.Currency, state.tag),
			e.AgeDays, e.Age,
			pricetrack.FormatUnitPrice(display, ds.Currency, state.tag),
			e.Judgement)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if id := analysis.CheapestRecentSourceID(); id != pricetrack.SourceIDNone {
		for _, e := range analysis.Prices {
			if e.Source.ID == id {
				fmt.Fprintf(out, "cheapest recent price at %s\n", e.Source.Name)
				break
			}
		}
	}
	if th := analysis.Thresholds; th != nil {
		base := item.QuantityType().BaseUnit()
		fmt.Fprintf(out, "good below %s, bad above %s\n",
			pricetrack.FormatUnitPrice(pricetrack.UnitPrice{Numerator: th.Good, Denominator: base}, ds.Currency, state.tag),
			pricetrack.FormatUnitPrice(pricetrack.UnitPrice{Numerator: th.Bad, Denominator: base}, ds.Currency, state.tag))
	}
	return nil
}
