package pricetrack

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const defaultCurrencyDecimals = 2

// CurrencyDecimalPlaces is the standard minor-unit scale of an ISO 4217 code,
// e.g. 2 for EUR, 0 for JPY. Unknown codes fall back to 2.
func CurrencyDecimalPlaces(code string) int {
	cu, err := currency.ParseISO(code)
	if err != nil {
		return defaultCurrencyDecimals
	}
	scale, _ := currency.Standard.Rounding(cu)
	return scale
}

// FormatUnitPrice renders e.g. "EUR 1.29 / 100 g" with locale digit grouping.
// The locale only affects presentation.
func FormatUnitPrice(up UnitPrice, currencyCode string, tag language.Tag) string {
	p := message.NewPrinter(tag)
	amount := number.Decimal(up.Numerator, number.Scale(CurrencyDecimalPlaces(currencyCode)))
	return p.Sprintf("%s %v / %s", currencyCode, amount, up.Denominator)
}

// FormatQuantity renders a quantity using the unit's display precision.
func FormatQuantity(q Quantity, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%v %s", number.Decimal(q.Value, number.MaxFractionDigits(q.Unit.Decimals())), q.Unit)
}

// FormatPrice renders a shelf price in the data set's currency.
func FormatPrice(amount float64, currencyCode string, tag language.Tag) string {
	p := message.NewPrinter(tag)
	return p.Sprintf("%s %v", currencyCode, number.Decimal(amount, number.Scale(CurrencyDecimalPlaces(currencyCode))))
}

func validateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("invalid currency code %q: %w", code, err)
	}
	return nil
}
