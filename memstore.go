package pricetrack

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type priceKey struct {
	dataSetID, itemID, sourceID int64
}

type memoryState struct {
	prices      map[int64]Price
	history     map[int64]PriceHistory
	nextPriceID int64
	nextHistID  int64
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		prices:      make(map[int64]Price, len(s.prices)),
		history:     make(map[int64]PriceHistory, len(s.history)),
		nextPriceID: s.nextPriceID,
		nextHistID:  s.nextHistID,
	}
	for k, v := range s.prices {
		c.prices[k] = v
	}
	for k, v := range s.history {
		c.history[k] = v
	}
	return c
}

// MemoryStore is an in-process Transactor. Each transaction works on a copy
// of the state that replaces the live state only on success.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		prices:      make(map[int64]Price),
		history:     make(map[int64]PriceHistory),
		nextPriceID: 1,
		nextHistID:  1,
	}}
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(repo PriceRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := m.state.clone()
	if err := fn(memoryRepo{work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

type memoryRepo struct {
	s *memoryState
}

func (r memoryRepo) find(k priceKey) (Price, bool) {
	for _, p := range r.s.prices {
		if (priceKey{p.DataSetID, p.ItemID, p.SourceID}) == k {
			return p, true
		}
	}
	return Price{}, false
}

func (r memoryRepo) UpsertPrice(ctx context.Context, p Price) (int64, error) {
	p = normalizePrice(p)
	if cur, ok := r.find(priceKey{p.DataSetID, p.ItemID, p.SourceID}); ok {
		p.ID = cur.ID
	} else {
		p.ID = r.s.nextPriceID
		r.s.nextPriceID++
	}
	r.s.prices[p.ID] = p
	return p.ID, nil
}

func (r memoryRepo) InsertHistory(ctx context.Context, h PriceHistory) (int64, error) {
	h.ID = r.s.nextHistID
	h.ConfirmedAt = truncateMillis(h.ConfirmedAt)
	h.ModifiedAt = truncateMillis(h.ModifiedAt)
	r.s.nextHistID++
	r.s.history[h.ID] = h
	return h.ID, nil
}

func (r memoryRepo) History(ctx context.Context, dataSetID, itemID, sourceID int64) ([]PriceHistory, error) {
	var hist []PriceHistory
	for _, h := range r.s.history {
		if h.DataSetID == dataSetID && h.ItemID == itemID && h.SourceID == sourceID {
			hist = append(hist, h)
		}
	}
	sort.Slice(hist, func(i, j int) bool { return hist[i].ID > hist[j].ID })
	return hist, nil
}

func (r memoryRepo) CurrentPrice(ctx context.Context, dataSetID, itemID, sourceID int64) (*Price, error) {
	p, ok := r.find(priceKey{dataSetID, itemID, sourceID})
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memoryRepo) DeletePrice(ctx context.Context, id int64) error {
	if _, ok := r.s.prices[id]; !ok {
		return fmt.Errorf("price %d: %w", id, ErrNotFound)
	}
	delete(r.s.prices, id)
	return nil
}

func (r memoryRepo) DeleteHistory(ctx context.Context, id int64) error {
	if _, ok := r.s.history[id]; !ok {
		return fmt.Errorf("price history %d: %w", id, ErrNotFound)
	}
	delete(r.s.history, id)
	return nil
}

// Prices lists the current prices of an item, in id order.
func (m *MemoryStore) Prices(itemID int64) []Price {
	m.mu.Lock()
	defer m.mu.Unlock()
	var prices []Price
	for _, p := range m.state.prices {
		if p.ItemID == itemID {
			prices = append(prices, p)
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].ID < prices[j].ID })
	return prices
}
