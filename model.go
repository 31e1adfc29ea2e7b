package pricetrack

import (
	"fmt"
	"strings"
	"time"
)

// SourceIDNone stands for "no source" where a source id is expected.
const SourceIDNone int64 = -1

// DataSet is an isolated household or context with its own currency and units.
type DataSet struct {
	ID          int64
	Name        string
	Currency    string
	Metric      bool
	Imperial    bool
	USCustomary bool
	Notes       string
}

// Families returns the enabled unit families, re-checking the set so a bad
// row written behind our back is caught on read as well.
func (ds DataSet) Families() (UnitFamily, error) {
	var f UnitFamily
	if ds.Metric {
		f |= FamilyMetric
	}
	if ds.Imperial {
		f |= FamilyImperial
	}
	if ds.USCustomary {
		f |= FamilyUSCustomary
	}
	if err := ValidateFamilies(f); err != nil {
		return 0, fmt.Errorf("data set %d: %w", ds.ID, err)
	}
	return f | FamilyItem, nil
}

func (ds DataSet) Validate() error {
	if strings.TrimSpace(ds.Name) == "" {
		return fmt.Errorf("data set name is required")
	}
	if err := validateCurrency(ds.Currency); err != nil {
		return err
	}
	_, err := ds.Families()
	return err
}

type Item struct {
	ID          int64
	DataSetID   int64
	Name        string
	DefaultUnit Unit
	Multipack   bool
	Notes       string
}

func (it Item) QuantityType() QuantityType {
	return it.DefaultUnit.QuantityType()
}

type LoyaltyType int

const (
	LoyaltyNone LoyaltyType = iota
	LoyaltyBonus
	LoyaltyDiscount
)

func (lt LoyaltyType) String() string {
	switch lt {
	case LoyaltyBonus:
		return "bonus"
	case LoyaltyDiscount:
		return "discount"
	}
	return "none"
}

func ParseLoyaltyType(s string) (LoyaltyType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return LoyaltyNone, nil
	case "bonus":
		return LoyaltyBonus, nil
	case "discount":
		return LoyaltyDiscount, nil
	}
	return LoyaltyNone, fmt.Errorf("unknown loyalty type %q", s)
}

type Source struct {
	ID             int64
	DataSetID      int64
	Name           string
	Loyalty        LoyaltyType
	LoyaltyPercent float64
	Notes          string
}

// LoyaltyMultiplier converts a shelf price into the price effectively paid.
// A discount of p% pays (1 - p/100); a bonus of p% gets (1 + p/100) worth of
// goods for the price, so the effective price is divided by that.
func (s Source) LoyaltyMultiplier() float64 {
	switch s.Loyalty {
	case LoyaltyDiscount:
		return 1 - s.LoyaltyPercent/100
	case LoyaltyBonus:
		return 1 / (1 + s.LoyaltyPercent/100)
	}
	return 1
}

// Price is the one current price of an item at a source.
type Price struct {
	ID          int64
	DataSetID   int64
	ItemID      int64
	SourceID    int64
	Price       float64
	Count       int
	Quantity    Quantity
	ConfirmedAt time.Time
	ModifiedAt  time.Time
	Notes       string

	// ItemUnit caches the item's default unit for cross-checking only.
	ItemUnit Unit
}

// PriceHistory is one immutable ledger entry. PriceID names the price row it
// was written for, which may since have been deleted.
type PriceHistory struct {
	ID          int64
	PriceID     int64
	DataSetID   int64
	ItemID      int64
	SourceID    int64
	Price       float64
	Count       int
	Quantity    Quantity
	ConfirmedAt time.Time
	ModifiedAt  time.Time
	Notes       string
	ItemUnit    Unit
}

func (p Price) historyEntry() PriceHistory {
	return PriceHistory{
		PriceID:     p.ID,
		DataSetID:   p.DataSetID,
		ItemID:      p.ItemID,
		SourceID:    p.SourceID,
		Price:       p.Price,
		Count:       p.Count,
		Quantity:    p.Quantity,
		ConfirmedAt: p.ConfirmedAt,
		ModifiedAt:  p.ModifiedAt,
		Notes:       p.Notes,
		ItemUnit:    p.ItemUnit,
	}
}

// AsPrice rebuilds the price row this entry mirrors.
func (h PriceHistory) AsPrice() Price {
	return Price{
		ID:          h.PriceID,
		DataSetID:   h.DataSetID,
		ItemID:      h.ItemID,
		SourceID:    h.SourceID,
		Price:       h.Price,
		Count:       h.Count,
		Quantity:    h.Quantity,
		ConfirmedAt: h.ConfirmedAt,
		ModifiedAt:  h.ModifiedAt,
		Notes:       h.Notes,
		ItemUnit:    h.ItemUnit,
	}
}

// priceRecord is the persisted shape of a price: base-unit quantity and
// millisecond timestamps. Two prices are the same record iff these are ==.
type priceRecord struct {
	id, dataSetID, itemID, sourceID int64
	price                           float64
	count                           int
	baseValue                       float64
	unit                            Unit
	confirmedMs, modifiedMs         int64
	notes                           string
	itemUnit                        Unit
}

func (p Price) record() priceRecord {
	return priceRecord{
		id:          p.ID,
		dataSetID:   p.DataSetID,
		itemID:      p.ItemID,
		sourceID:    p.SourceID,
		price:       p.Price,
		count:       p.Count,
		baseValue:   baseValue(p.Quantity),
		unit:        p.Quantity.Unit,
		confirmedMs: p.ConfirmedAt.UnixMilli(),
		modifiedMs:  p.ModifiedAt.UnixMilli(),
		notes:       p.Notes,
		itemUnit:    p.ItemUnit,
	}
}

// SameRecord reports whether p and other persist identically.
func (p Price) SameRecord(other Price) bool {
	return p.record() == other.record()
}

func baseValue(q Quantity) float64 {
	if !q.Unit.Valid() {
		return q.Value
	}
	return q.Value * q.Unit.Factor()
}

func quantityFromBase(base float64, unit Unit) Quantity {
	if !unit.Valid() {
		return Quantity{Value: base, Unit: unit}
	}
	return Quantity{Value: base / unit.Factor(), Unit: unit}
}

func truncateMillis(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}
