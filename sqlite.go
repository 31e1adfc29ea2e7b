package pricetrack

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

// SQLiteStore persists data sets, items, sources, prices and price history.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database file at path and
// migrates the schema.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sqlx.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	logger.Debug("database ready", "path", path)
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS data_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			currency TEXT NOT NULL,
			metric INTEGER NOT NULL DEFAULT 0,
			imperial INTEGER NOT NULL DEFAULT 0,
			us_customary INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			CHECK (NOT (imperial AND us_customary))
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data_set_id INTEGER NOT NULL REFERENCES data_sets(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			default_unit INTEGER NOT NULL,
			multipack INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			UNIQUE (id, data_set_id)
		);`,
		`CREATE TABLE IF NOT EXISTS sources (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data_set_id INTEGER NOT NULL REFERENCES data_sets(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			loyalty_type INTEGER NOT NULL DEFAULT 0,
			loyalty_percent REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			UNIQUE (id, data_set_id)
		);`,
		// AUTOINCREMENT keeps deleted price ids from being reused; the id gap
		// is what marks a deletion in the history stream.
		// The composite keys keep a price inside the data set of its item
		// and source.
		`CREATE TABLE IF NOT EXISTS prices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			data_set_id INTEGER NOT NULL REFERENCES data_sets(id) ON DELETE CASCADE,
			item_id INTEGER NOT NULL,
			source_id INTEGER NOT NULL,
			price REAL NOT NULL,
			count INTEGER NOT NULL,
			quantity_base REAL NOT NULL,
			quantity_unit INTEGER NOT NULL,
			confirmed_at INTEGER NOT NULL,
			modified_at INTEGER NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			item_unit INTEGER NOT NULL,
			UNIQUE (data_set_id, item_id, source_id),
			FOREIGN KEY (item_id, data_set_id) REFERENCES items(id, data_set_id) ON DELETE CASCADE,
			FOREIGN KEY (source_id, data_set_id) REFERENCES sources(id, data_set_id) ON DELETE CASCADE
		);`,
		// No foreign key to prices: history outlives a deleted price.
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			price_id INTEGER NOT NULL,
			data_set_id INTEGER NOT NULL REFERENCES data_sets(id) ON DELETE CASCADE,
			item_id INTEGER NOT NULL,
			source_id INTEGER NOT NULL,
			price REAL NOT NULL,
			count INTEGER NOT NULL,
			quantity_base REAL NOT NULL,
			quantity_unit INTEGER NOT NULL,
			confirmed_at INTEGER NOT NULL,
			modified_at INTEGER NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			item_unit INTEGER NOT NULL,
			FOREIGN KEY (item_id, data_set_id) REFERENCES items(id, data_set_id) ON DELETE CASCADE,
			FOREIGN KEY (source_id, data_set_id) REFERENCES sources(id, data_set_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_triple
			ON price_history(data_set_id, item_id, source_id, id);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// WithinTx implements Transactor.
func (s *SQLiteStore) WithinTx(ctx context.Context, fn func(repo PriceRepository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(sqliteRepo{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type priceRow struct {
	ID           int64   `db:"id"`
	PriceID      int64   `db:"price_id"`
	DataSetID    int64   `db:"data_set_id"`
	ItemID       int64   `db:"item_id"`
	SourceID     int64   `db:"source_id"`
	Price        float64 `db:"price"`
	Count        int     `db:"count"`
	QuantityBase float64 `db:"quantity_base"`
	QuantityUnit int     `db:"quantity_unit"`
	ConfirmedAt  int64   `db:"confirmed_at"`
	ModifiedAt   int64   `db:"modified_at"`
	Notes        string  `db:"notes"`
	ItemUnit     int     `db:"item_unit"`
}

func (r priceRow) price() Price {
	return Price{
		ID:          r.ID,
		DataSetID:   r.DataSetID,
		ItemID:      r.ItemID,
		SourceID:    r.SourceID,
		Price:       r.Price,
		Count:       r.Count,
		Quantity:    quantityFromBase(r.QuantityBase, Unit(r.QuantityUnit)),
		ConfirmedAt: time.UnixMilli(r.ConfirmedAt).UTC(),
		ModifiedAt:  time.UnixMilli(r.ModifiedAt).UTC(),
		Notes:       r.Notes,
		ItemUnit:    Unit(r.ItemUnit),
	}
}

func (r priceRow) history() PriceHistory {
	p := r.price()
	return PriceHistory{
		ID:          r.ID,
		PriceID:     r.PriceID,
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

const priceColumns = `id, data_set_id, item_id, source_id, price, count, quantity_base,
	quantity_unit, confirmed_at, modified_at, notes, item_unit`

const historyColumns = `id, price_id, data_set_id, item_id, source_id, price, count, quantity_base,
	quantity_unit, confirmed_at, modified_at, notes, item_unit`

type sqliteRepo struct {
	tx *sqlx.Tx
}

func (r sqliteRepo) UpsertPrice(ctx context.Context, p Price) (int64, error) {
	var id int64
	err := r.tx.QueryRowxContext(ctx, `INSERT INTO prices (data_set_id, item_id, source_id, price, count,
			quantity_base, quantity_unit, confirmed_at, modified_at, notes, item_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (data_set_id, item_id, source_id) DO UPDATE SET
			price = excluded.price,
			count = excluded.count,
			quantity_base = excluded.quantity_base,
			quantity_unit = excluded.quantity_unit,
			confirmed_at = excluded.confirmed_at,
			modified_at = excluded.modified_at,
			notes = excluded.notes,
			item_unit = excluded.item_unit
		RETURNING id`,
		p.DataSetID, p.ItemID, p.SourceID, p.Price, p.Count,
		baseValue(p.Quantity), int(p.Quantity.Unit), p.ConfirmedAt.UnixMilli(), p.ModifiedAt.UnixMilli(),
		p.Notes, int(p.ItemUnit)).Scan(&id)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return id, nil
}

func (r sqliteRepo) InsertHistory(ctx context.Context, h PriceHistory) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `INSERT INTO price_history (price_id, data_set_id, item_id, source_id,
			price, count, quantity_base, quantity_unit, confirmed_at, modified_at, notes, item_unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.PriceID, h.DataSetID, h.ItemID, h.SourceID, h.Price, h.Count,
		baseValue(h.Quantity), int(h.Quantity.Unit), h.ConfirmedAt.UnixMilli(), h.ModifiedAt.UnixMilli(),
		h.Notes, int(h.ItemUnit))
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	return res.LastInsertId()
}

func (r sqliteRepo) History(ctx context.Context, dataSetID, itemID, sourceID int64) ([]PriceHistory, error) {
	var rows []priceRow
	err := r.tx.SelectContext(ctx, &rows, `SELECT `+historyColumns+` FROM price_history
		WHERE data_set_id = ? AND item_id = ? AND source_id = ?
		ORDER BY id DESC`, dataSetID, itemID, sourceID)
	if err != nil {
		return nil, err
	}
	hist := make([]PriceHistory, len(rows))
	for i, row := range rows {
		hist[i] = row.history()
	}
	return hist, nil
}

func (r sqliteRepo) CurrentPrice(ctx context.Context, dataSetID, itemID, sourceID int64) (*Price, error) {
	var row priceRow
	err := r.tx.GetContext(ctx, &row, `SELECT `+priceColumns+` FROM prices
		WHERE data_set_id = ? AND item_id = ? AND source_id = ?`, dataSetID, itemID, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p := row.price()
	return &p, nil
}

func (r sqliteRepo) DeletePrice(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.tx, "prices", id)
}

func (r sqliteRepo) DeleteHistory(ctx context.Context, id int64) error {
	return deleteByID(ctx, r.tx, "price_history", id)
}

func deleteByID(ctx context.Context, ex sqlx.ExecerContext, table string, id int64) error {
	res, err := ex.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, ErrNotFound)
	}
	return nil
}

func mapSQLiteError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
		return fmt.Errorf("%w: referenced row does not exist: %v", ErrNotFound, err)
	}
	return err
}

// Prices lists the current prices of an item across all sources.
func (s *SQLiteStore) Prices(ctx context.Context, dataSetID, itemID int64) ([]Price, error) {
	var rows []priceRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+priceColumns+` FROM prices
		WHERE data_set_id = ? AND item_id = ? ORDER BY id`, dataSetID, itemID)
	if err != nil {
		return nil, err
	}
	prices := make([]Price, len(rows))
	for i, row := range rows {
		prices[i] = row.price()
	}
	return prices, nil
}

// AllPrices lists every current price in a data set.
func (s *SQLiteStore) AllPrices(ctx context.Context, dataSetID int64) ([]Price, error) {
	var rows []priceRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+priceColumns+` FROM prices
		WHERE data_set_id = ? ORDER BY id`, dataSetID)
	if err != nil {
		return nil, err
	}
	prices := make([]Price, len(rows))
	for i, row := range rows {
		prices[i] = row.price()
	}
	return prices, nil
}

// AllHistory lists every history entry in a data set, oldest first.
func (s *SQLiteStore) AllHistory(ctx context.Context, dataSetID int64) ([]PriceHistory, error) {
	var rows []priceRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+historyColumns+` FROM price_history
		WHERE data_set_id = ? ORDER BY id`, dataSetID)
	if err != nil {
		return nil, err
	}
	hist := make([]PriceHistory, len(rows))
	for i, row := range rows {
		hist[i] = row.history()
	}
	return hist, nil
}
