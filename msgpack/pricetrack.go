package pricetrackmsgpack

import (
	"time"

	"pricetrack"
)

type DataSet struct {
	ID          int64  `msgpack:"id,omitempty"`
	Name        string `msgpack:"name,omitempty"`
	Currency    string `msgpack:"currency,omitempty"`
	Metric      bool   `msgpack:"metric,omitempty"`
	Imperial    bool   `msgpack:"imperial,omitempty"`
	USCustomary bool   `msgpack:"us_customary,omitempty"`
	Notes       string `msgpack:"notes,omitempty"`
}

type Item struct {
	ID          int64  `msgpack:"id,omitempty"`
	Name        string `msgpack:"name,omitempty"`
	DefaultUnit int    `msgpack:"default_unit,omitempty"`
	Multipack   bool   `msgpack:"multipack,omitempty"`
	Notes       string `msgpack:"notes,omitempty"`
}

type Source struct {
	ID             int64   `msgpack:"id,omitempty"`
	Name           string  `msgpack:"name,omitempty"`
	LoyaltyType    int     `msgpack:"loyalty_type,omitempty"`
	LoyaltyPercent float64 `msgpack:"loyalty_percent,omitempty"`
	Notes          string  `msgpack:"notes,omitempty"`
}

// Price doubles as the history entry shape; PriceID is only set for history.
type Price struct {
	ID           int64   `msgpack:"id,omitempty"`
	PriceID      int64   `msgpack:"price_id,omitempty"`
	ItemID       int64   `msgpack:"item_id,omitempty"`
	SourceID     int64   `msgpack:"source_id,omitempty"`
	Price        float64 `msgpack:"price,omitempty"`
	Count        int     `msgpack:"count,omitempty"`
	QuantityBase float64 `msgpack:"quantity_base,omitempty"`
	QuantityUnit int     `msgpack:"quantity_unit,omitempty"`
	ConfirmedMs  int64   `msgpack:"confirmed,omitempty"`
	ModifiedMs   int64   `msgpack:"modified,omitempty"`
	Notes        string  `msgpack:"notes,omitempty"`
	ItemUnit     int     `msgpack:"item_unit,omitempty"`
}

func NewDataSet(ds pricetrack.DataSet) DataSet {
	return DataSet{
		ID:          ds.ID,
		Name:        ds.Name,
		Currency:    ds.Currency,
		Metric:      ds.Metric,
		Imperial:    ds.Imperial,
		USCustomary: ds.USCustomary,
		Notes:       ds.Notes,
	}
}

func ToDataSet(ds DataSet) pricetrack.DataSet {
	return pricetrack.DataSet{
		ID:          ds.ID,
		Name:        ds.Name,
		Currency:    ds.Currency,
		Metric:      ds.Metric,
		Imperial:    ds.Imperial,
		USCustomary: ds.USCustomary,
		Notes:       ds.Notes,
	}
}

func NewItem(it pricetrack.Item) Item {
	return Item{
		ID:          it.ID,
		Name:        it.Name,
		DefaultUnit: int(it.DefaultUnit),
		Multipack:   it.Multipack,
		Notes:       it.Notes,
	}
}

func ToItem(dataSetID int64, it Item) pricetrack.Item {
	return pricetrack.Item{
		ID:          it.ID,
		DataSetID:   dataSetID,
		Name:        it.Name,
		DefaultUnit: pricetrack.Unit(it.DefaultUnit),
		Multipack:   it.Multipack,
		Notes:       it.Notes,
	}
}

func NewSource(src pricetrack.Source) Source {
	return Source{
		ID:             src.ID,
		Name:           src.Name,
		LoyaltyType:    int(src.Loyalty),
		LoyaltyPercent: src.LoyaltyPercent,
		Notes:          src.Notes,
	}
}

func ToSource(dataSetID int64, src Source) pricetrack.Source {
	return pricetrack.Source{
		ID:             src.ID,
		DataSetID:      dataSetID,
		Name:           src.Name,
		Loyalty:        pricetrack.LoyaltyType(src.LoyaltyType),
		LoyaltyPercent: src.LoyaltyPercent,
		Notes:          src.Notes,
	}
}

func NewPrice(p pricetrack.Price) Price {
	return Price{
		ID:           p.ID,
		ItemID:       p.ItemID,
		SourceID:     p.SourceID,
		Price:        p.Price,
		Count:        p.Count,
		QuantityBase: p.Quantity.Value * p.Quantity.Unit.Factor(),
		QuantityUnit: int(p.Quantity.Unit),
		ConfirmedMs:  p.ConfirmedAt.UnixMilli(),
		ModifiedMs:   p.ModifiedAt.UnixMilli(),
		Notes:        p.Notes,
		ItemUnit:     int(p.ItemUnit),
	}
}

func ToPrice(dataSetID int64, p Price) pricetrack.Price {
	unit := pricetrack.Unit(p.QuantityUnit)
	q := pricetrack.Quantity{Value: p.QuantityBase, Unit: unit}
	if unit.Valid() {
		q.Value = p.QuantityBase / unit.Factor()
	}
	return pricetrack.Price{
		ID:          p.ID,
		DataSetID:   dataSetID,
		ItemID:      p.ItemID,
		SourceID:    p.SourceID,
		Price:       p.Price,
		Count:       p.Count,
		Quantity:    q,
		ConfirmedAt: time.UnixMilli(p.ConfirmedMs).UTC(),
		ModifiedAt:  time.UnixMilli(p.ModifiedMs).UTC(),
		Notes:       p.Notes,
		ItemUnit:    pricetrack.Unit(p.ItemUnit),
	}
}

func NewPriceHistory(h pricetrack.PriceHistory) Price {
	dto := NewPrice(h.AsPrice())
	dto.ID = h.ID
	dto.PriceID = h.PriceID
	return dto
}

func ToPriceHistory(dataSetID int64, p Price) pricetrack.PriceHistory {
	pr := ToPrice(dataSetID, p)
	return pricetrack.PriceHistory{
		ID:          p.ID,
		PriceID:     p.PriceID,
		DataSetID:   dataSetID,
		ItemID:      pr.ItemID,
		SourceID:    pr.SourceID,
		Price:       pr.Price,
		Count:       pr.Count,
		Quantity:    pr.Quantity,
		ConfirmedAt: pr.ConfirmedAt,
		ModifiedAt:  pr.ModifiedAt,
		Notes:       pr.Notes,
		ItemUnit:    pr.ItemUnit,
	}
}
