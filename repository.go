package pricetrack

import "context"

// PriceRepository is the storage contract the ledger composes into
// transactions. Implementations need not be safe outside WithinTx.
type PriceRepository interface {
	// UpsertPrice inserts or overwrites the row for the price's
	// (data set, item, source) and returns the row id.
	UpsertPrice(ctx context.Context, p Price) (int64, error)
	InsertHistory(ctx context.Context, h PriceHistory) (int64, error)
	// History is newest first.
	History(ctx context.Context, dataSetID, itemID, sourceID int64) ([]PriceHistory, error)
	// CurrentPrice returns nil when the triple has no price.
	CurrentPrice(ctx context.Context, dataSetID, itemID, sourceID int64) (*Price, error)
	DeletePrice(ctx context.Context, id int64) error
	DeleteHistory(ctx context.Context, id int64) error
}

// Transactor runs fn atomically: every write fn makes through repo is
// committed if fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repo PriceRepository) error) error
}
