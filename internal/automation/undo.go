package automation

import (
	"context"
	"sync"
	"time"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/models"
)

// MutationRecord captures the prior state of one product mutation so it
// can be reverted. Exactly one of the name or categorization pairs is set,
// depending on the run kind that produced it.
type MutationRecord struct {
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Timestamp   time.Time `json:"timestamp"`

	PriorName *string `json:"prior_name,omitempty"`
	NewName   *string `json:"new_name,omitempty"`

	PriorCategorization *models.CategoryUpdate `json:"prior_categorization,omitempty"`
	NewCategorization   *models.CategoryUpdate `json:"new_categorization,omitempty"`
}

// UndoInfo summarizes what an undo would revert.
type UndoInfo struct {
	Kind    RunKind   `json:"kind"`
	Count   int       `json:"count"`
	Oldest  time.Time `json:"oldest,omitempty"`
	Newest  time.Time `json:"newest,omitempty"`
	Samples []string  `json:"samples,omitempty"`
}

// UndoStore keeps per-kind logs of applied mutations. Each completed run
// appends to its kind's log; RollbackAll reverts and clears it.
type UndoStore struct {
	mu   sync.Mutex
	logs map[RunKind][]MutationRecord
}

// NewUndoStore creates an empty undo store.
func NewUndoStore() *UndoStore {
	return &UndoStore{logs: make(map[RunKind][]MutationRecord)}
}

func (u *UndoStore) append(kind RunKind, rec MutationRecord) {
	u.mu.Lock()
	u.logs[kind] = append(u.logs[kind], rec)
	u.mu.Unlock()
}

// Count returns the number of revertible mutations for a kind.
func (u *UndoStore) Count(kind RunKind) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.logs[kind])
}

// Info describes the pending undo log for a kind.
func (u *UndoStore) Info(kind RunKind) UndoInfo {
	u.mu.Lock()
	defer u.mu.Unlock()

	recs := u.logs[kind]
	info := UndoInfo{Kind: kind, Count: len(recs)}
	if len(recs) == 0 {
		return info
	}
	info.Oldest = recs[0].Timestamp
	info.Newest = recs[len(recs)-1].Timestamp
	for i := 0; i < len(recs) && i < 5; i++ {
		info.Samples = append(info.Samples, recs[i].ProductName)
	}
	return info
}

// Clear drops the undo log for a kind without reverting anything.
func (u *UndoStore) Clear(kind RunKind) {
	u.mu.Lock()
	delete(u.logs, kind)
	u.mu.Unlock()
}

// reverter is the slice of the store the undo path needs.
type reverter interface {
	UpdateProductName(ctx context.Context, id, name string) error
	UpdateProductCategories(ctx context.Context, id string, upd models.CategoryUpdate) error
}

// RollbackAll reverts every recorded mutation for a kind, newest first,
// and returns how many reverted and how many failed. The log is cleared
// unconditionally: a second call reverts nothing. An empty log returns
// (0, 0) without touching the store.
func (u *UndoStore) RollbackAll(ctx context.Context, kind RunKind, store reverter) (reverted, failed int) {
	u.mu.Lock()
	recs := u.logs[kind]
	delete(u.logs, kind)
	u.mu.Unlock()

	for i := len(recs) - 1; i >= 0; i-- {
		rec := recs[i]
		var err error
		switch {
		case rec.PriorName != nil:
			err = store.UpdateProductName(ctx, rec.ProductID, *rec.PriorName)
		case rec.PriorCategorization != nil:
			err = store.UpdateProductCategories(ctx, rec.ProductID, *rec.PriorCategorization)
		default:
			continue
		}
		if err != nil {
			failed++
			continue
		}
		reverted++
	}
	return reverted, failed
}
