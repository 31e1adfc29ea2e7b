package pricetrack

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// AgeSettings are the user's price freshness thresholds.
type AgeSettings struct {
	StaleDays              int `yaml:"stale_days"`
	AncientDays            int `yaml:"ancient_days"`
	AnnualInflationPercent int `yaml:"annual_inflation_percent"`
}

func DefaultAgeSettings() AgeSettings {
	return AgeSettings{StaleDays: 30, AncientDays: 180, AnnualInflationPercent: 5}
}

func (s AgeSettings) Validate() error {
	if s.StaleDays < 0 || s.StaleDays >= s.AncientDays || s.AncientDays > 365 {
		return fmt.Errorf("price age thresholds must satisfy 0 <= stale < ancient <= 365, got stale=%d ancient=%d",
			s.StaleDays, s.AncientDays)
	}
	if s.AnnualInflationPercent < 0 {
		return fmt.Errorf("annual inflation percent must not be negative, got %d", s.AnnualInflationPercent)
	}
	return nil
}

type AgeClass int

const (
	AgeFresh AgeClass = iota
	AgeStale
	AgeAncient
)

func (a AgeClass) String() string {
	switch a {
	case AgeStale:
		return "stale"
	case AgeAncient:
		return "ancient"
	}
	return "fresh"
}

// ClassifyAge uses "after N days" semantics: a price exactly StaleDays old is
// still fresh.
func (s AgeSettings) ClassifyAge(ageDays int) AgeClass {
	switch {
	case ageDays <= s.StaleDays:
		return AgeFresh
	case ageDays <= s.AncientDays:
		return AgeStale
	}
	return AgeAncient
}

// Inflate ages a price by the annual inflation rate, compounding only over the
// days past the stale threshold so there is no jump when a price turns stale.
func (s AgeSettings) Inflate(price float64, ageDays float64) float64 {
	if ageDays <= float64(s.StaleDays) {
		return price
	}
	years := (ageDays - float64(s.StaleDays)) / 365.25
	return price * math.Pow(1+float64(s.AnnualInflationPercent)/100, years)
}

type Judgement int

const (
	JudgementNone Judgement = iota
	JudgementGood
	JudgementOK
	JudgementBad
)

func (j Judgement) String() string {
	switch j {
	case JudgementGood:
		return "good"
	case JudgementOK:
		return "ok"
	case JudgementBad:
		return "bad"
	}
	return "-"
}

// thresholdBuffer widens the interquartile band on both sides.
const thresholdBuffer = 0.1

// Thresholds are unit-price numerators per base unit: below Good is good,
// above Bad is bad.
type Thresholds struct {
	Good float64
	Bad  float64
}

func (t Thresholds) Judge(unitPrice float64) Judgement {
	switch {
	case unitPrice < t.Good:
		return JudgementGood
	case unitPrice <= t.Bad:
		return JudgementOK
	}
	return JudgementBad
}

type AnalysedPrice struct {
	Price         Price
	Source        Source
	LoyaltyPrice  float64
	AgeDays       int
	Age           AgeClass
	AdjustedPrice float64
	UnitPrice     UnitPrice
	Judgement     Judgement
}

type Analysis struct {
	Prices []AnalysedPrice
	// Thresholds is nil when there were too few recent prices to judge.
	Thresholds *Thresholds
}

// CheapestRecentSourceID is the source with the lowest unit price among
// prices that are not ancient, or SourceIDNone when there is none.
func (a Analysis) CheapestRecentSourceID() int64 {
	for _, e := range a.Prices {
		if e.Age != AgeAncient {
			return e.Source.ID
		}
	}
	return SourceIDNone
}

// AnalysePrices ranks the current prices of one item across sources.
func AnalysePrices(prices []Price, sources []Source, settings AgeSettings, tag language.Tag, now time.Time) (Analysis, error) {
	return analyse(slog.Default(), prices, sources, settings, tag, now)
}

func analyse(logger *slog.Logger, prices []Price, sources []Source, settings AgeSettings, tag language.Tag, now time.Time) (Analysis, error) {
	sourceByID := make(map[int64]Source, len(sources))
	for _, s := range sources {
		sourceByID[s.ID] = s
	}

	entries := make([]AnalysedPrice, 0, len(prices))
	for _, p := range prices {
		src, ok := sourceByID[p.SourceID]
		if !ok {
			logger.Warn("price references unknown source", "price_id", p.ID, "source_id", p.SourceID)
			continue
		}
		loyaltyPrice := p.Price * src.LoyaltyMultiplier()
		ageDays := int(math.Floor(now.Sub(p.ConfirmedAt).Hours() / 24))
		adjusted := settings.Inflate(loyaltyPrice, float64(ageDays))
		up, err := CalculateBaseUnitPrice(adjusted, p.Count, p.Quantity)
		if err != nil {
			return Analysis{}, fmt.Errorf("price %d: %w", p.ID, err)
		}
		entries = append(entries, AnalysedPrice{
			Price:         p,
			Source:        src,
			LoyaltyPrice:  loyaltyPrice,
			AgeDays:       ageDays,
			Age:           settings.ClassifyAge(ageDays),
			AdjustedPrice: adjusted,
			UnitPrice:     up,
		})
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].UnitPrice.Denominator != entries[0].UnitPrice.Denominator {
			return Analysis{}, fmt.Errorf("%w: prices mix %s and %s", ErrInvariant,
				entries[0].UnitPrice.Denominator, entries[i].UnitPrice.Denominator)
		}
	}

	col := collate.New(tag, collate.IgnoreCase, collate.IgnoreDiacritics, collate.IgnoreWidth)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].UnitPrice.Numerator, entries[j].UnitPrice.Numerator
		if a != b {
			return a < b
		}
		return col.CompareString(entries[i].Source.Name, entries[j].Source.Name) < 0
	})

	var recent []float64
	for _, e := range entries {
		if e.Age != AgeAncient {
			recent = append(recent, e.UnitPrice.Numerator)
		}
	}
	if len(recent) <= 2 {
		return Analysis{Prices: entries}, nil
	}

	q1, err := Quantile(recent, 0.25)
	if err != nil {
		return Analysis{}, err
	}
	q3, err := Quantile(recent, 0.75)
	if err != nil {
		return Analysis{}, err
	}
	th := &Thresholds{Good: q1 * (1 - thresholdBuffer), Bad: q3 * (1 + thresholdBuffer)}
	for i := range entries {
		entries[i].Judgement = th.Judge(entries[i].UnitPrice.Numerator)
	}
	return Analysis{Prices: entries, Thresholds: th}, nil
}

// Quantile interpolates linearly between the closest ranks of an ascending slice.
func Quantile(sorted []float64, q float64) (float64, error) {
	if len(sorted) == 0 {
		return 0, fmt.Errorf("%w: quantile of empty input", ErrInvariant)
	}
	if q < 0 || q > 1 || math.IsNaN(q) {
		return 0, fmt.Errorf("%w: quantile %v outside [0,1]", ErrInvariant, q)
	}
	if !sort.Float64sAreSorted(sorted) {
		return 0, fmt.Errorf("%w: quantile input is not ascending", ErrInvariant)
	}
	idx := q * float64(len(sorted)-1)
	lo, hi := int(math.Floor(idx)), int(math.Ceil(idx))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(idx-float64(lo)), nil
}
