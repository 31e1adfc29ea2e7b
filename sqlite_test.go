package pricetrack

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "pricetrack.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_DataSetValidation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateDataSet(ctx, DataSet{Name: "Mixed", Currency: "GBP", Imperial: true, USCustomary: true})
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = s.CreateDataSet(ctx, DataSet{Name: "None", Currency: "GBP"})
	assert.ErrorIs(t, err, ErrInvariant)

	_, err = s.CreateDataSet(ctx, DataSet{Name: "Bad currency", Currency: "XX", Metric: true})
	assert.Error(t, err)

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "UK", Currency: "gbp", Metric: true, Imperial: true})
	require.NoError(t, err)
	assert.Equal(t, "GBP", ds.Currency)

	got, err := s.DataSet(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds, got)

	_, err = s.DataSet(ctx, ds.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSQLite_UpdateDataSetKeepsUsedFamilies verifies a family in use by an
// item cannot be switched off.
func TestSQLite_UpdateDataSetKeepsUsedFamilies(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "UK", Currency: "GBP", Metric: true, Imperial: true})
	require.NoError(t, err)
	_, err = s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Milk", DefaultUnit: UnitImpPint})
	require.NoError(t, err)

	ds.Imperial = false
	assert.Error(t, s.UpdateDataSet(ctx, ds))

	ds.Imperial = true
	ds.Notes = "groceries"
	require.NoError(t, s.UpdateDataSet(ctx, ds))
	got, err := s.DataSet(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Notes)
}

func TestSQLite_ItemUnitMustBeEnabled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "EU", Currency: "EUR", Metric: true})
	require.NoError(t, err)

	_, err = s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Milk", DefaultUnit: UnitUSPint})
	assert.Error(t, err)
	_, err = s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Cheese", DefaultUnit: UnitHundredG})
	assert.Error(t, err, "display-only units are not item units")
	_, err = s.CreateItem(ctx, Item{DataSetID: ds.ID + 1, Name: "Eggs", DefaultUnit: UnitEach})
	assert.ErrorIs(t, err, ErrNotFound)

	it, err := s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Eggs", DefaultUnit: UnitDozen})
	require.NoError(t, err)
	items, err := s.Items(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []Item{it}, items)
}

// TestSQLite_ItemSoldByChange verifies the quantity type of an item is
// frozen once prices reference it.
func TestSQLite_ItemSoldByChange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "EU", Currency: "EUR", Metric: true})
	require.NoError(t, err)
	it, err := s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Apples", DefaultUnit: UnitEach})
	require.NoError(t, err)
	src, err := s.CreateSource(ctx, Source{DataSetID: ds.ID, Name: "Market"})
	require.NoError(t, err)

	// no prices yet: each -> kg is fine, and back
	it.DefaultUnit = UnitKG
	require.NoError(t, s.UpdateItem(ctx, it))
	it.DefaultUnit = UnitEach
	require.NoError(t, s.UpdateItem(ctx, it))

	_, err = NewLedger(s, nil).UpdateOrInsertPrice(ctx, Price{
		DataSetID: ds.ID, ItemID: it.ID, SourceID: src.ID,
		Price: 0.40, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitEach},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitEach,
	})
	require.NoError(t, err)

	it.DefaultUnit = UnitKG
	assert.ErrorIs(t, s.UpdateItem(ctx, it), ErrItemHasPrices)

	// same quantity type is still allowed
	it.DefaultUnit = UnitDozen
	assert.NoError(t, s.UpdateItem(ctx, it))
}

// TestSQLite_DeleteDataSetCascades verifies deleting a data set removes its
// items, sources, prices and history.
func TestSQLite_DeleteDataSetCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "EU", Currency: "EUR", Metric: true})
	require.NoError(t, err)
	it, err := s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Rice", DefaultUnit: UnitKG})
	require.NoError(t, err)
	src, err := s.CreateSource(ctx, Source{DataSetID: ds.ID, Name: "Shop", Loyalty: LoyaltyDiscount, LoyaltyPercent: 3})
	require.NoError(t, err)
	_, err = NewLedger(s, nil).UpdateOrInsertPrice(ctx, Price{
		DataSetID: ds.ID, ItemID: it.ID, SourceID: src.ID,
		Price: 2.19, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitKG},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitKG,
	})
	require.NoError(t, err)

	sources, err := s.Sources(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, []Source{src}, sources)

	require.NoError(t, s.DeleteDataSet(ctx, ds.ID))
	assert.ErrorIs(t, s.DeleteDataSet(ctx, ds.ID), ErrNotFound)

	_, err = s.Item(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Source(ctx, src.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	prices, err := s.AllPrices(ctx, ds.ID)
	require.NoError(t, err)
	assert.Empty(t, prices)
	hist, err := s.AllHistory(ctx, ds.ID)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestSQLite_PriceNeedsExistingRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ds, err := s.CreateDataSet(ctx, DataSet{Name: "EU", Currency: "EUR", Metric: true})
	require.NoError(t, err)
	it, err := s.CreateItem(ctx, Item{DataSetID: ds.ID, Name: "Rice", DefaultUnit: UnitKG})
	require.NoError(t, err)

	_, err = NewLedger(s, nil).UpdateOrInsertPrice(ctx, Price{
		DataSetID: ds.ID, ItemID: it.ID, SourceID: 42,
		Price: 2.19, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitKG},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitKG,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestSQLite_Reopen verifies data and id sequences survive closing the file.
func TestSQLite_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	s, err := OpenSQLite(path, nil)
	require.NoError(t, err)
	ds, err := s.CreateDataSet(ctx, DataSet{Name: "US", Currency: "USD", USCustomary: true})
	require.NoError(t, err)
	_, err = s.CreateDataSet(ctx, DataSet{Name: "Gone", Currency: "USD", USCustomary: true})
	require.NoError(t, err)
	require.NoError(t, s.DeleteDataSet(ctx, ds.ID+1))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path, nil)
	require.NoError(t, err)
	defer s.Close()

	sets, err := s.DataSets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DataSet{ds}, sets)

	next, err := s.CreateDataSet(ctx, DataSet{Name: "New", Currency: "USD", USCustomary: true})
	require.NoError(t, err)
	assert.Equal(t, ds.ID+2, next.ID)
}

// TestSQLite_PriceStaysInItsDataSet verifies a price cannot pair an item or
// source with another data set.
func TestSQLite_PriceStaysInItsDataSet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ledger := NewLedger(s, nil)

	metric, err := s.CreateDataSet(ctx, DataSet{Name: "EU", Currency: "EUR", Metric: true})
	require.NoError(t, err)
	us, err := s.CreateDataSet(ctx, DataSet{Name: "US", Currency: "USD", USCustomary: true})
	require.NoError(t, err)
	rice, err := s.CreateItem(ctx, Item{DataSetID: metric.ID, Name: "Rice", DefaultUnit: UnitKG})
	require.NoError(t, err)
	milk, err := s.CreateItem(ctx, Item{DataSetID: us.ID, Name: "Milk", DefaultUnit: UnitUSGallon})
	require.NoError(t, err)
	market, err := s.CreateSource(ctx, Source{DataSetID: metric.ID, Name: "Market"})
	require.NoError(t, err)
	diner, err := s.CreateSource(ctx, Source{DataSetID: us.ID, Name: "Diner"})
	require.NoError(t, err)

	// item from the other data set
	_, err = ledger.UpdateOrInsertPrice(ctx, Price{
		DataSetID: metric.ID, ItemID: milk.ID, SourceID: market.ID,
		Price: 3.49, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitUSGallon},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitUSGallon,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	// source from the other data set
	_, err = ledger.UpdateOrInsertPrice(ctx, Price{
		DataSetID: metric.ID, ItemID: rice.ID, SourceID: diner.ID,
		Price: 2.19, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitKG},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitKG,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	prices, err := s.AllPrices(ctx, metric.ID)
	require.NoError(t, err)
	assert.Empty(t, prices)
	hist, err := s.AllHistory(ctx, metric.ID)
	require.NoError(t, err)
	assert.Empty(t, hist)

	_, err = ledger.UpdateOrInsertPrice(ctx, Price{
		DataSetID: metric.ID, ItemID: rice.ID, SourceID: market.ID,
		Price: 2.19, Count: 1, Quantity: Quantity{Value: 1, Unit: UnitKG},
		ConfirmedAt: t0, ModifiedAt: t0, ItemUnit: UnitKG,
	})
	require.NoError(t, err)

	// removing the other data set leaves this one's prices alone
	require.NoError(t, s.DeleteDataSet(ctx, us.ID))
	prices, err = s.AllPrices(ctx, metric.ID)
	require.NoError(t, err)
	assert.Len(t, prices, 1)
}
