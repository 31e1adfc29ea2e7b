package pricetrack

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestQuantile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		q      float64
		want   float64
	}{
		{"single", []float64{4}, 0.75, 4},
		{"tens", []float64{10, 20, 30, 40}, 0.25, 17.5},
		{"min", []float64{1, 2, 3, 4}, 0, 1},
		{"max", []float64{1, 2, 3, 4}, 1, 4},
		{"lower quartile interpolates", []float64{1, 2, 3, 4}, 0.25, 1.75},
		{"upper quartile interpolates", []float64{1, 2, 3, 4}, 0.75, 3.25},
		{"median odd", []float64{1, 1, 2, 3, 3}, 0.5, 2},
		{"exact rank", []float64{1, 1, 2, 3, 3}, 0.25, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Quantile(tc.sorted, tc.q)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-12)
		})
	}
}

func TestQuantile_Invalid(t *testing.T) {
	_, err := Quantile(nil, 0.5)
	assert.ErrorIs(t, err, ErrInvariant)
	_, err = Quantile([]float64{1, 2}, 1.5)
	assert.ErrorIs(t, err, ErrInvariant)
	_, err = Quantile([]float64{1, 2}, -0.1)
	assert.ErrorIs(t, err, ErrInvariant)
	_, err = Quantile([]float64{1, 2}, math.NaN())
	assert.ErrorIs(t, err, ErrInvariant)
	_, err = Quantile([]float64{2, 1}, 0.5)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestAgeSettings(t *testing.T) {
	s := DefaultAgeSettings()
	require.NoError(t, s.Validate())

	assert.Equal(t, AgeFresh, s.ClassifyAge(0))
	assert.Equal(t, AgeFresh, s.ClassifyAge(30))
	assert.Equal(t, AgeStale, s.ClassifyAge(31))
	assert.Equal(t, AgeStale, s.ClassifyAge(180))
	assert.Equal(t, AgeAncient, s.ClassifyAge(181))

	for _, bad := range []AgeSettings{
		{StaleDays: 30, AncientDays: 30, AnnualInflationPercent: 5},
		{StaleDays: -1, AncientDays: 30, AnnualInflationPercent: 5},
		{StaleDays: 30, AncientDays: 366, AnnualInflationPercent: 5},
		{StaleDays: 30, AncientDays: 180, AnnualInflationPercent: -1},
	} {
		assert.Error(t, bad.Validate(), "%+v", bad)
	}
}

// TestInflate verifies aging starts at the stale threshold without a jump
// and compounds yearly from there.
func TestInflate(t *testing.T) {
	s := DefaultAgeSettings()

	assert.Equal(t, 10.0, s.Inflate(10, 0))
	assert.Equal(t, 10.0, s.Inflate(10, 30))
	assert.InDelta(t, 10.0, s.Inflate(10, 30.001), 1e-4)
	assert.InDelta(t, 10.5, s.Inflate(10, 30+365.25), 1e-9)
	assert.InDelta(t, 11.025, s.Inflate(10, 30+2*365.25), 1e-9)

	s.AnnualInflationPercent = 0
	assert.Equal(t, 10.0, s.Inflate(10, 400))
}

func TestLoyaltyMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, Source{}.LoyaltyMultiplier())
	assert.InDelta(t, 0.9, Source{Loyalty: LoyaltyDiscount, LoyaltyPercent: 10}.LoyaltyMultiplier(), 1e-12)
	assert.InDelta(t, 0.8, Source{Loyalty: LoyaltyBonus, LoyaltyPercent: 25}.LoyaltyMultiplier(), 1e-12)
}

func analysisPrice(source int64, amount float64, confirmed time.Time) Price {
	return Price{
		ID:          source,
		DataSetID:   1,
		ItemID:      1,
		SourceID:    source,
		Price:       amount,
		Count:       1,
		Quantity:    Quantity{Value: 1, Unit: UnitEach},
		ConfirmedAt: confirmed,
		ModifiedAt:  confirmed,
		ItemUnit:    UnitEach,
	}
}

// TestAnalysePrices_Judgement verifies thresholds from recent unit prices
// [1 1 2 3 3]: Q1=1 and Q3=3 widen to good below 0.9 and bad above 3.3.
func TestAnalysePrices_Judgement(t *testing.T) {
	now := t0
	sources := []Source{
		{ID: 1, Name: "banana shop"},
		{ID: 2, Name: "Apple Market"},
		{ID: 3, Name: "Corner"},
		{ID: 4, Name: "Deli"},
		{ID: 5, Name: "Express"},
		{ID: 6, Name: "Farm"},
		{ID: 7, Name: "Gourmet"},
	}
	prices := []Price{
		analysisPrice(1, 1, now),
		analysisPrice(2, 1, now.AddDate(0, 0, -3)),
		analysisPrice(3, 2, now.AddDate(0, 0, -60)),
		analysisPrice(4, 3, now),
		analysisPrice(5, 3, now),
		// ancient: judged, but not part of the band
		analysisPrice(6, 0.5, now.AddDate(0, 0, -200)),
		analysisPrice(7, 10, now.AddDate(0, 0, -200)),
	}
	a, err := AnalysePrices(prices, sources, DefaultAgeSettings(), language.English, now)
	require.NoError(t, err)
	require.NotNil(t, a.Thresholds)
	assert.InDelta(t, 0.9, a.Thresholds.Good, 1e-9)
	assert.InDelta(t, 3.3, a.Thresholds.Bad, 1e-9)

	var names []string
	judged := map[string]Judgement{}
	for _, e := range a.Prices {
		names = append(names, e.Source.Name)
		judged[e.Source.Name] = e.Judgement
		assert.Equal(t, UnitEach, e.UnitPrice.Denominator)
	}
	assert.Equal(t, []string{"Farm", "Apple Market", "banana shop", "Corner", "Deli", "Express", "Gourmet"}, names)

	assert.Equal(t, JudgementGood, judged["Farm"])
	assert.Equal(t, JudgementOK, judged["Apple Market"])
	assert.Equal(t, JudgementOK, judged["Express"])
	assert.Equal(t, JudgementBad, judged["Gourmet"])

	byName := map[string]AnalysedPrice{}
	for _, e := range a.Prices {
		byName[e.Source.Name] = e
	}
	assert.Equal(t, 60, byName["Corner"].AgeDays)
	assert.Equal(t, AgeStale, byName["Corner"].Age)
	assert.InDelta(t, 2*math.Pow(1.05, 30/365.25), byName["Corner"].AdjustedPrice, 1e-12)
	assert.Equal(t, AgeAncient, byName["Farm"].Age)
	assert.Greater(t, byName["Gourmet"].AdjustedPrice, 10.0)

	// Farm is cheaper but ancient
	assert.EqualValues(t, 2, a.CheapestRecentSourceID())
}

func TestAnalysePrices_TooFewRecent(t *testing.T) {
	sources := []Source{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	prices := []Price{
		analysisPrice(1, 1, t0),
		analysisPrice(2, 2, t0),
		analysisPrice(3, 3, t0.AddDate(-1, 0, 0)),
	}
	a, err := AnalysePrices(prices, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	assert.Nil(t, a.Thresholds)
	require.Len(t, a.Prices, 3)
	for _, e := range a.Prices {
		assert.Equal(t, JudgementNone, e.Judgement)
	}
}

// TestAnalysePrices_LoyaltyAndUnits verifies loyalty schemes and pack sizes
// feed the per-base-unit price.
func TestAnalysePrices_LoyaltyAndUnits(t *testing.T) {
	sources := []Source{
		{ID: 1, Name: "Plain"},
		{ID: 2, Name: "Discount", Loyalty: LoyaltyDiscount, LoyaltyPercent: 10},
		{ID: 3, Name: "Bonus", Loyalty: LoyaltyBonus, LoyaltyPercent: 25},
	}
	mk := func(src int64, amount float64, count int, q Quantity) Price {
		return Price{ID: src, SourceID: src, Price: amount, Count: count, Quantity: q, ConfirmedAt: t0, ItemUnit: UnitKG}
	}
	prices := []Price{
		mk(1, 3, 1, Quantity{Value: 1, Unit: UnitKG}),
		mk(2, 10, 4, Quantity{Value: 500, Unit: UnitG}),
		mk(3, 2, 1, Quantity{Value: 500, Unit: UnitG}),
	}
	a, err := AnalysePrices(prices, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	require.Len(t, a.Prices, 3)

	// per gram: plain 3/1000, bonus 1.6/500, discount 9/2000
	assert.Equal(t, "Plain", a.Prices[0].Source.Name)
	assert.Equal(t, "Bonus", a.Prices[1].Source.Name)
	assert.InDelta(t, 0.0032, a.Prices[1].UnitPrice.Numerator, 1e-12)
	assert.Equal(t, "Discount", a.Prices[2].Source.Name)
	assert.InDelta(t, 9.0, a.Prices[2].LoyaltyPrice, 1e-12)
	assert.InDelta(t, 0.0045, a.Prices[2].UnitPrice.Numerator, 1e-12)
	assert.Equal(t, UnitG, a.Prices[0].UnitPrice.Denominator)
}

func TestAnalysePrices_Edges(t *testing.T) {
	sources := []Source{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}

	// unknown sources are skipped
	a, err := AnalysePrices([]Price{analysisPrice(1, 1, t0), analysisPrice(9, 1, t0)}, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	require.Len(t, a.Prices, 1)
	assert.EqualValues(t, 1, a.Prices[0].Source.ID)

	// ages are whole days, rounded down
	a, err = AnalysePrices([]Price{analysisPrice(1, 1, t0.Add(-36*time.Hour))}, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Prices[0].AgeDays)

	// mixed quantity types cannot be ranked together
	weighed := analysisPrice(2, 1, t0)
	weighed.Quantity = Quantity{Value: 1, Unit: UnitKG}
	_, err = AnalysePrices([]Price{analysisPrice(1, 1, t0), weighed}, sources, DefaultAgeSettings(), language.English, t0)
	assert.ErrorIs(t, err, ErrInvariant)

	// nothing to analyse
	a, err = AnalysePrices(nil, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	assert.Empty(t, a.Prices)
	assert.Nil(t, a.Thresholds)
	assert.Equal(t, SourceIDNone, a.CheapestRecentSourceID())

	// only ancient prices
	a, err = AnalysePrices([]Price{analysisPrice(1, 1, t0.AddDate(-1, 0, 0))}, sources, DefaultAgeSettings(), language.English, t0)
	require.NoError(t, err)
	require.Len(t, a.Prices, 1)
	assert.Equal(t, SourceIDNone, a.CheapestRecentSourceID())
}

func TestThresholds_Judge(t *testing.T) {
	th := Thresholds{Good: 0.9, Bad: 3.3}
	assert.Equal(t, JudgementGood, th.Judge(0.89))
	assert.Equal(t, JudgementOK, th.Judge(0.9))
	assert.Equal(t, JudgementOK, th.Judge(3.3))
	assert.Equal(t, JudgementBad, th.Judge(3.31))

	assert.Equal(t, JudgementGood, th.Judge(0.85))
	assert.Equal(t, JudgementOK, th.Judge(1.5))
	assert.Equal(t, JudgementBad, th.Judge(3.5))
}
