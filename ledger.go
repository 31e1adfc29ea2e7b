package pricetrack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Ledger keeps the current price rows and their append-only history in step.
type Ledger struct {
	store  Transactor
	logger *slog.Logger
}

func NewLedger(store Transactor, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger}
}

func validatePrice(p Price) error {
	if p.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvariant, p.Count)
	}
	if !(p.Quantity.Value > 0) {
		return fmt.Errorf("%w: quantity must be positive, got %g", ErrInvariant, p.Quantity.Value)
	}
	if !p.Quantity.Unit.Valid() || !p.ItemUnit.Valid() {
		return fmt.Errorf("%w: price has unknown unit %d (item unit %d)", ErrInvariant, p.Quantity.Unit, p.ItemUnit)
	}
	if p.Quantity.Unit.QuantityType() != p.ItemUnit.QuantityType() {
		return fmt.Errorf("%w: price quantity %s does not match item unit %s", ErrInvariant, p.Quantity, p.ItemUnit)
	}
	return nil
}

func normalizePrice(p Price) Price {
	p.ConfirmedAt = truncateMillis(p.ConfirmedAt)
	p.ModifiedAt = truncateMillis(p.ModifiedAt)
	return p
}

// UpdateOrInsertPrice writes p as the current price for its item and source and
// appends one history entry mirroring the stored row. Returns the stored row.
func (l *Ledger) UpdateOrInsertPrice(ctx context.Context, p Price) (Price, error) {
	if err := validatePrice(p); err != nil {
		return Price{}, err
	}
	p = normalizePrice(p)
	err := l.store.WithinTx(ctx, func(repo PriceRepository) error {
		id, err := repo.UpsertPrice(ctx, p)
		if err != nil {
			return fmt.Errorf("upsert price: %w", err)
		}
		p.ID = id
		if _, err := repo.InsertHistory(ctx, p.historyEntry()); err != nil {
			return fmt.Errorf("append price history: %w", err)
		}
		return nil
	})
	observeLedgerOp("upsert", err)
	if err != nil {
		return Price{}, err
	}
	l.logger.Debug("price written", "price_id", p.ID, "item_id", p.ItemID, "source_id", p.SourceID, "price", p.Price)
	return p, nil
}

// DeletePrice removes the current row. History is kept; a later re-add gets a
// new id, which is how the timeline shows the deletion.
func (l *Ledger) DeletePrice(ctx context.Context, p Price) error {
	err := l.store.WithinTx(ctx, func(repo PriceRepository) error {
		cur, err := repo.CurrentPrice(ctx, p.DataSetID, p.ItemID, p.SourceID)
		if err != nil {
			return err
		}
		if cur == nil || cur.ID != p.ID {
			return fmt.Errorf("price %d: %w", p.ID, ErrNotFound)
		}
		return repo.DeletePrice(ctx, p.ID)
	})
	observeLedgerOp("delete", err)
	if err == nil {
		l.logger.Info("price deleted", "price_id", p.ID, "item_id", p.ItemID, "source_id", p.SourceID)
	}
	return err
}

// History returns the ledger for one item at one source, newest first.
func (l *Ledger) History(ctx context.Context, dataSetID, itemID, sourceID int64) ([]PriceHistory, error) {
	var hist []PriceHistory
	err := l.store.WithinTx(ctx, func(repo PriceRepository) error {
		var err error
		hist, err = repo.History(ctx, dataSetID, itemID, sourceID)
		return err
	})
	return hist, err
}

func (l *Ledger) consistencyError(check, format string, args ...any) error {
	ledgerConsistencyAborts.WithLabelValues(check).Inc()
	err := fmt.Errorf("%w: %s", ErrConsistency, fmt.Sprintf(format, args...))
	l.logger.Warn("revert aborted", "check", check, "err", err)
	return err
}

// RevertPrice undoes the most recent edit or confirmation: the live row goes
// from before back to after and the newest history entry is dropped. Every
// check runs before the first write; any mismatch aborts with nothing changed.
func (l *Ledger) RevertPrice(ctx context.Context, before, after Price) error {
	if before.ID != after.ID || before.DataSetID != after.DataSetID ||
		before.ItemID != after.ItemID || before.SourceID != after.SourceID {
		err := fmt.Errorf("%w: revert between different prices (%d/%d/%d/%d vs %d/%d/%d/%d)", ErrInvariant,
			before.ID, before.DataSetID, before.ItemID, before.SourceID,
			after.ID, after.DataSetID, after.ItemID, after.SourceID)
		observeLedgerOp("revert", err)
		return err
	}
	after = normalizePrice(after)

	err := l.store.WithinTx(ctx, func(repo PriceRepository) error {
		cur, err := repo.CurrentPrice(ctx, before.DataSetID, before.ItemID, before.SourceID)
		if err != nil {
			return err
		}
		if cur == nil || !cur.SameRecord(before) {
			return l.consistencyError("current", "price %d changed since it was read", before.ID)
		}

		hist, err := repo.History(ctx, before.DataSetID, before.ItemID, before.SourceID)
		if err != nil {
			return err
		}
		if len(hist) < 2 {
			return l.consistencyError("depth", "price %d has %d history entries, nothing to revert to", before.ID, len(hist))
		}
		if !hist[0].AsPrice().SameRecord(*cur) {
			return l.consistencyError("top", "latest history entry %d does not match price %d", hist[0].ID, cur.ID)
		}
		if !hist[1].AsPrice().SameRecord(after) {
			return l.consistencyError("previous", "history entry %d does not match the revert target", hist[1].ID)
		}

		if _, err := repo.UpsertPrice(ctx, after); err != nil {
			return fmt.Errorf("restore price: %w", err)
		}
		return repo.DeleteHistory(ctx, hist[0].ID)
	})
	observeLedgerOp("revert", err)
	if err != nil {
		return err
	}
	l.logger.Info("price reverted", "price_id", after.ID, "item_id", after.ItemID, "source_id", after.SourceID)
	return nil
}

// RevertLast reverts the latest change for a triple, deriving both sides from
// the store. Returns the restored price.
func (l *Ledger) RevertLast(ctx context.Context, dataSetID, itemID, sourceID int64) (Price, error) {
	var before, after Price
	err := l.store.WithinTx(ctx, func(repo PriceRepository) error {
		cur, err := repo.CurrentPrice(ctx, dataSetID, itemID, sourceID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("price for item %d at source %d: %w", itemID, sourceID, ErrNotFound)
		}
		hist, err := repo.History(ctx, dataSetID, itemID, sourceID)
		if err != nil {
			return err
		}
		if len(hist) < 2 {
			return fmt.Errorf("%w: nothing to revert for item %d at source %d", ErrConsistency, itemID, sourceID)
		}
		if hist[1].PriceID != cur.ID {
			return fmt.Errorf("%w: price %d was deleted and re-added since entry %d", ErrConsistency, cur.ID, hist[1].ID)
		}
		before, after = *cur, hist[1].AsPrice()
		return nil
	})
	if err != nil {
		return Price{}, err
	}
	if err := l.RevertPrice(ctx, before, after); err != nil {
		return Price{}, err
	}
	return after, nil
}

// IsUserFacing reports whether err is something to show as a plain failure
// rather than a bug report.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrConsistency) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrItemHasPrices)
}
