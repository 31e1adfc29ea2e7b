package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/text/language"

	"pricetrack"
)

func main() {
	ctx := context.Background()
	now := time.Now()
	days := func(n int) time.Time { return now.AddDate(0, 0, -n) }

	// Everything in memory; OpenSQLite gives the same Ledger a database
	store := pricetrack.NewMemoryStore()
	ledger := pricetrack.NewLedger(store, nil)

	sources := []pricetrack.Source{
		{ID: 1, Name: "Corner Shop"},
		{ID: 2, Name: "Hypermarket", Loyalty: pricetrack.LoyaltyDiscount, LoyaltyPercent: 5},
		{ID: 3, Name: "Market Stall"},
		{ID: 4, Name: "Online", Loyalty: pricetrack.LoyaltyBonus, LoyaltyPercent: 10},
	}

	coffee := pricetrack.Item{ID: 1, DataSetID: 1, Name: "Coffee beans", DefaultUnit: pricetrack.UnitKG}
	set := func(src int64, price float64, q pricetrack.Quantity, seen time.Time) pricetrack.Price {
		p, err := ledger.UpdateOrInsertPrice(ctx, pricetrack.Price{
			DataSetID:   1,
			ItemID:      coffee.ID,
			SourceID:    src,
			Price:       price,
			Count:       1,
			Quantity:    q,
			ConfirmedAt: seen,
			ModifiedAt:  now,
			ItemUnit:    coffee.DefaultUnit,
		})
		if err != nil {
			panic(err)
		}
		return p
	}

	set(1, 6.49, pricetrack.Quantity{Value: 500, Unit: pricetrack.UnitG}, days(2))
	set(2, 21.99, pricetrack.Quantity{Value: 2, Unit: pricetrack.UnitKG}, days(10))
	set(3, 3.10, pricetrack.Quantity{Value: 250, Unit: pricetrack.UnitG}, days(75))
	set(4, 11.50, pricetrack.Quantity{Value: 1, Unit: pricetrack.UnitKG}, days(200))

	// A typo, then undo it
	before := set(1, 64.90, pricetrack.Quantity{Value: 500, Unit: pricetrack.UnitG}, now)
	restored, err := ledger.RevertLast(ctx, 1, coffee.ID, 1)
	if err != nil {
		panic(err)
	}
	fmt.Printf("reverted price %d from %.2f back to %.2f\n", before.ID, before.Price, restored.Price)

	analysis, err := pricetrack.AnalysePrices(store.Prices(coffee.ID), sources, pricetrack.DefaultAgeSettings(), language.BritishEnglish, now)
	if err != nil {
		panic(err)
	}

	candidates, err := pricetrack.RelatedUnits(coffee.DefaultUnit, pricetrack.FamilyMetric, true)
	if err != nil {
		panic(err)
	}
	for _, e := range analysis.Prices {
		display, err := e.UnitPrice.WithFriendlyDenominator(e.Price.Quantity.Unit, 2, candidates)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%-14s %-8s %-24s %s\n", e.Source.Name, e.Age,
			pricetrack.FormatUnitPrice(display, "EUR", language.BritishEnglish), e.Judgement)
	}
	if th := analysis.Thresholds; th != nil {
		fmt.Printf("good below %.4f/g, bad above %.4f/g\n", th.Good, th.Bad)
	}
}
