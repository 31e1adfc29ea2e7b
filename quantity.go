package pricetrack

import "fmt"

// Quantity is an amount in a catalog unit, e.g. 500 g or 2 pints.
type Quantity struct {
	Value float64
	Unit  Unit
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

func checkCommensurable(a, b Unit) error {
	if a.QuantityType() != b.QuantityType() {
		return fmt.Errorf("%w: cannot convert %s (%s) to %s (%s)", ErrInvariant,
			a, a.QuantityType(), b, b.QuantityType())
	}
	return nil
}

// To converts through the base unit of the quantity type.
func (q Quantity) To(target Unit) (Quantity, error) {
	if err := checkCommensurable(q.Unit, target); err != nil {
		return Quantity{}, err
	}
	if q.Unit == target {
		return q, nil
	}
	return Quantity{Value: q.Value * q.Unit.Factor() / target.Factor(), Unit: target}, nil
}

// MustTo is To for conversions known to be valid at compile time.
func (q Quantity) MustTo(target Unit) Quantity {
	res, err := q.To(target)
	if err != nil {
		panic(err)
	}
	return res
}

// Plus returns q + other expressed in q's unit.
func (q Quantity) Plus(other Quantity) (Quantity, error) {
	conv, err := other.To(q.Unit)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Value + conv.Value, Unit: q.Unit}, nil
}

func (q Quantity) AsValue(unit Unit) (float64, error) {
	conv, err := q.To(unit)
	if err != nil {
		return 0, err
	}
	return conv.Value, nil
}

// Base is q in the canonical unit of its quantity type.
func (q Quantity) Base() Quantity {
	return q.MustTo(q.Unit.QuantityType().BaseUnit())
}
