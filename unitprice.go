package pricetrack

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UnitPrice is a price per one Denominator, e.g. 2.49 per kg.
type UnitPrice struct {
	Numerator   float64
	Denominator Unit
}

func (up UnitPrice) String() string {
	return fmt.Sprintf("%g/%s", up.Numerator, up.Denominator)
}

// CalculateUnitPrice computes price / (count × quantity in denominator units).
func CalculateUnitPrice(price float64, count int, quantity Quantity, denominator Unit) (UnitPrice, error) {
	if count <= 0 {
		return UnitPrice{}, fmt.Errorf("%w: count must be positive, got %d", ErrInvariant, count)
	}
	if quantity.Value <= 0 {
		return UnitPrice{}, fmt.Errorf("%w: quantity must be positive, got %s", ErrInvariant, quantity)
	}
	amount, err := quantity.AsValue(denominator)
	if err != nil {
		return UnitPrice{}, err
	}
	return UnitPrice{Numerator: price / (float64(count) * amount), Denominator: denominator}, nil
}

// CalculateBaseUnitPrice uses the base unit of the quantity as denominator.
func CalculateBaseUnitPrice(price float64, count int, quantity Quantity) (UnitPrice, error) {
	return CalculateUnitPrice(price, count, quantity, quantity.Unit.QuantityType().BaseUnit())
}

// WithDenominator re-expresses the same rate per another unit.
func (up UnitPrice) WithDenominator(u Unit) (UnitPrice, error) {
	if err := checkCommensurable(up.Denominator, u); err != nil {
		return UnitPrice{}, err
	}
	if u == up.Denominator {
		return up, nil
	}
	return UnitPrice{Numerator: up.Numerator * u.Factor() / up.Denominator.Factor(), Denominator: u}, nil
}

func (up UnitPrice) perBase() float64 {
	return up.Numerator / up.Denominator.Factor()
}

// CompareTo returns -1, 0 or 1. Both sides are taken to the base unit first so
// the result never depends on which denominator either side was expressed in.
func (up UnitPrice) CompareTo(other UnitPrice) (int, error) {
	if err := checkCommensurable(up.Denominator, other.Denominator); err != nil {
		return 0, err
	}
	a, b := up.perBase(), other.perBase()
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	}
	return 0, nil
}

// Scoring weights for WithFriendlyDenominator. Tuned by hand; keep as is.
const (
	friendlyErrorWeight    = 10.0
	friendlyPreferredBonus = 1.1
)

// WithFriendlyDenominator picks the candidate denominator that displays best:
// one leading integer digit, little rounding loss at the currency's precision,
// and the unit the price was entered in.
func (up UnitPrice) WithFriendlyDenominator(preferred Unit, currencyDecimalPlaces int, candidates []Unit) (UnitPrice, error) {
	if len(candidates) == 0 {
		return UnitPrice{}, fmt.Errorf("%w: no candidate denominators", ErrInvariant)
	}
	var (
		best      UnitPrice
		bestScore = math.Inf(1)
	)
	for _, c := range candidates {
		conv, err := up.WithDenominator(c)
		if err != nil {
			return UnitPrice{}, err
		}
		score := friendlyScore(conv.Numerator, currencyDecimalPlaces)
		if c == preferred {
			score -= friendlyPreferredBonus
		}
		if score < bestScore {
			best, bestScore = conv, score
		}
	}
	return best, nil
}

func friendlyScore(x float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	rounded := math.Round(x*scale) / scale
	var relErr float64
	if x != 0 {
		relErr = math.Abs(rounded-x) / math.Abs(x)
	}
	return math.Abs(float64(integerLength(rounded, decimals)-1)) + friendlyErrorWeight*relErr
}

// integerLength counts the digits before the decimal point; "0" counts as none.
func integerLength(x float64, decimals int) int {
	s := strconv.FormatFloat(math.Abs(x), 'f', decimals, 64)
	intPart, _, _ := strings.Cut(s, ".")
	if intPart == "0" {
		return 0
	}
	return len(intPart)
}
