package pricetrack

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type dataSetRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Currency    string `db:"currency"`
	Metric      bool   `db:"metric"`
	Imperial    bool   `db:"imperial"`
	USCustomary bool   `db:"us_customary"`
	Notes       string `db:"notes"`
}

func (r dataSetRow) dataSet() DataSet {
	return DataSet(r)
}

type itemRow struct {
	ID          int64  `db:"id"`
	DataSetID   int64  `db:"data_set_id"`
	Name        string `db:"name"`
	DefaultUnit int    `db:"default_unit"`
	Multipack   bool   `db:"multipack"`
	Notes       string `db:"notes"`
}

func (r itemRow) item() Item {
	return Item{
		ID:          r.ID,
		DataSetID:   r.DataSetID,
		Name:        r.Name,
		DefaultUnit: Unit(r.DefaultUnit),
		Multipack:   r.Multipack,
		Notes:       r.Notes,
	}
}

type sourceRow struct {
	ID             int64   `db:"id"`
	DataSetID      int64   `db:"data_set_id"`
	Name           string  `db:"name"`
	LoyaltyType    int     `db:"loyalty_type"`
	LoyaltyPercent float64 `db:"loyalty_percent"`
	Notes          string  `db:"notes"`
}

func (r sourceRow) source() Source {
	return Source{
		ID:             r.ID,
		DataSetID:      r.DataSetID,
		Name:           r.Name,
		Loyalty:        LoyaltyType(r.LoyaltyType),
		LoyaltyPercent: r.LoyaltyPercent,
		Notes:          r.Notes,
	}
}

func notFound(kind string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return err
}

func (s *SQLiteStore) CreateDataSet(ctx context.Context, ds DataSet) (DataSet, error) {
	ds.Currency = strings.ToUpper(ds.Currency)
	if err := ds.Validate(); err != nil {
		return DataSet{}, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO data_sets (name, currency, metric, imperial, us_customary, notes)
		VALUES (?, ?, ?, ?, ?, ?)`, ds.Name, ds.Currency, ds.Metric, ds.Imperial, ds.USCustomary, ds.Notes)
	if err != nil {
		return DataSet{}, err
	}
	if ds.ID, err = res.LastInsertId(); err != nil {
		return DataSet{}, err
	}
	s.logger.Info("data set created", "data_set_id", ds.ID, "name", ds.Name)
	return ds, nil
}

// UpdateDataSet edits name, currency, notes and unit families. Dropping a
// family still used by an item's default unit is refused.
func (s *SQLiteStore) UpdateDataSet(ctx context.Context, ds DataSet) error {
	ds.Currency = strings.ToUpper(ds.Currency)
	if err := ds.Validate(); err != nil {
		return err
	}
	families, _ := ds.Families()
	items, err := s.Items(ctx, ds.ID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.DefaultUnit.Families()&families == 0 {
			return fmt.Errorf("item %q uses %s, which the new unit families %s do not include", it.Name, it.DefaultUnit, families)
		}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE data_sets SET name = ?, currency = ?, metric = ?, imperial = ?,
		us_customary = ?, notes = ? WHERE id = ?`,
		ds.Name, ds.Currency, ds.Metric, ds.Imperial, ds.USCustomary, ds.Notes, ds.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("data set %d: %w", ds.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DataSet(ctx context.Context, id int64) (DataSet, error) {
	var row dataSetRow
	if err := s.db.GetContext(ctx, &row, `SELECT id, name, currency, metric, imperial, us_customary, notes
		FROM data_sets WHERE id = ?`, id); err != nil {
		return DataSet{}, notFound("data set", id, err)
	}
	return row.dataSet(), nil
}

func (s *SQLiteStore) DataSets(ctx context.Context) ([]DataSet, error) {
	var rows []dataSetRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, name, currency, metric, imperial, us_customary, notes
		FROM data_sets ORDER BY id`); err != nil {
		return nil, err
	}
	sets := make([]DataSet, len(rows))
	for i, row := range rows {
		sets[i] = row.dataSet()
	}
	return sets, nil
}

// DeleteDataSet removes the data set and, by cascade, everything in it.
func (s *SQLiteStore) DeleteDataSet(ctx context.Context, id int64) error {
	if err := deleteByID(ctx, s.db, "data_sets", id); err != nil {
		return err
	}
	s.logger.Info("data set deleted", "data_set_id", id)
	return nil
}

func (s *SQLiteStore) validateItem(ctx context.Context, it Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return fmt.Errorf("item name is required")
	}
	if !it.DefaultUnit.Valid() {
		return fmt.Errorf("%w: unknown unit id %d", ErrInvariant, int(it.DefaultUnit))
	}
	ds, err := s.DataSet(ctx, it.DataSetID)
	if err != nil {
		return err
	}
	families, err := ds.Families()
	if err != nil {
		return err
	}
	units, err := UnitsFor(it.QuantityType(), families, false)
	if err != nil {
		return err
	}
	if !slices.Contains(units, it.DefaultUnit) {
		return fmt.Errorf("unit %s is not available in data set %q", it.DefaultUnit, ds.Name)
	}
	return nil
}

func (s *SQLiteStore) CreateItem(ctx context.Context, it Item) (Item, error) {
	if err := s.validateItem(ctx, it); err != nil {
		return Item{}, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO items (data_set_id, name, default_unit, multipack, notes)
		VALUES (?, ?, ?, ?, ?)`, it.DataSetID, it.Name, int(it.DefaultUnit), it.Multipack, it.Notes)
	if err != nil {
		return Item{}, mapSQLiteError(err)
	}
	if it.ID, err = res.LastInsertId(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// UpdateItem edits an item. Its quantity type ("sold by") may only change
// while no price references the item.
func (s *SQLiteStore) UpdateItem(ctx context.Context, it Item) error {
	if err := s.validateItem(ctx, it); err != nil {
		return err
	}
	cur, err := s.Item(ctx, it.ID)
	if err != nil {
		return err
	}
	if cur.QuantityType() != it.QuantityType() {
		var n int
		if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM prices WHERE item_id = ?`, it.ID); err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("item %q is sold by %s: %w", cur.Name, cur.QuantityType(), ErrItemHasPrices)
		}
	}
	_, err = s.db.ExecContext(ctx, `UPDATE items SET name = ?, default_unit = ?, multipack = ?, notes = ? WHERE id = ?`,
		it.Name, int(it.DefaultUnit), it.Multipack, it.Notes, it.ID)
	return err
}

func (s *SQLiteStore) Item(ctx context.Context, id int64) (Item, error) {
	var row itemRow
	if err := s.db.GetContext(ctx, &row, `SELECT id, data_set_id, name, default_unit, multipack, notes
		FROM items WHERE id = ?`, id); err != nil {
		return Item{}, notFound("item", id, err)
	}
	return row.item(), nil
}

func (s *SQLiteStore) Items(ctx context.Context, dataSetID int64) ([]Item, error) {
	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, data_set_id, name, default_unit, multipack, notes
		FROM items WHERE data_set_id = ? ORDER BY id`, dataSetID); err != nil {
		return nil, err
	}
	items := make([]Item, len(rows))
	for i, row := range rows {
		items[i] = row.item()
	}
	return items, nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, src Source) (Source, error) {
	if strings.TrimSpace(src.Name) == "" {
		return Source{}, fmt.Errorf("source name is required")
	}
	if src.LoyaltyPercent < 0 || (src.Loyalty == LoyaltyDiscount && src.LoyaltyPercent >= 100) {
		return Source{}, fmt.Errorf("loyalty percent %v out of range for %s", src.LoyaltyPercent, src.Loyalty)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO sources (data_set_id, name, loyalty_type, loyalty_percent, notes)
		VALUES (?, ?, ?, ?, ?)`, src.DataSetID, src.Name, int(src.Loyalty), src.LoyaltyPercent, src.Notes)
	if err != nil {
		return Source{}, mapSQLiteError(err)
	}
	if src.ID, err = res.LastInsertId(); err != nil {
		return Source{}, err
	}
	return src, nil
}

func (s *SQLiteStore) Source(ctx context.Context, id int64) (Source, error) {
	var row sourceRow
	if err := s.db.GetContext(ctx, &row, `SELECT id, data_set_id, name, loyalty_type, loyalty_percent, notes
		FROM sources WHERE id = ?`, id); err != nil {
		return Source{}, notFound("source", id, err)
	}
	return row.source(), nil
}

func (s *SQLiteStore) Sources(ctx context.Context, dataSetID int64) ([]Source, error) {
	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, data_set_id, name, loyalty_type, loyalty_percent, notes
		FROM sources WHERE data_set_id = ? ORDER BY id`, dataSetID); err != nil {
		return nil, err
	}
	sources := make([]Source, len(rows))
	for i, row := range rows {
		sources[i] = row.source()
	}
	return sources, nil
}
