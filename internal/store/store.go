// Package store owns the authoritative in-memory state: transactions, the
// category tree, rules and locks. All mutations are synchronous and guarded
// by one mutex, so a reader never observes a partially applied change.
// Statistics are recomputed inside the same critical section as the mutation
// that invalidated them.
package store

import (
	"sort"
	"sync"
	"time"

	"konto/internal/core"
)

type Store struct {
	mu sync.RWMutex

	transactions map[string]*core.Transaction
	order        []string // insertion order of transaction ids

	mains     map[string]*core.MainCategory
	mainOrder []string // display order of main category ids
	subs      map[string]*core.SubCategory

	rules map[string]core.Rule // keyed by normalized text
	locks map[string]core.Lock // keyed by transaction id

	stats core.Statistics

	now func() time.Time
}

// New returns an empty store. The clock is injectable for tests via WithClock.
func New() *Store {
	s := &Store{now: time.Now}
	s.resetLocked()
	return s
}

// WithClock replaces the store clock. Lock timestamps and snapshot metadata
// use it; tests inject a fixed clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ImportReport describes one ImportTransactions call.
type ImportReport struct {
	Incoming   int                `json:"incoming"`
	Added      int                `json:"added"`
	Duplicates []core.Transaction `json:"duplicates,omitempty"`
}

// ImportTransactions merges a parsed batch. Transactions without an id get
// their fingerprint assigned; ids already present in the store are excluded,
// which makes importing the same file twice a no-op on the stored count.
func (s *Store) ImportTransactions(batch []core.Transaction) ImportReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := ImportReport{Incoming: len(batch)}
	for _, tx := range batch {
		if tx.ID == "" {
			tx.ID = core.TransactionFingerprint(tx)
		}
		if _, exists := s.transactions[tx.ID]; exists {
			report.Duplicates = append(report.Duplicates, tx)
			continue
		}
		stored := tx
		s.transactions[tx.ID] = &stored
		s.order = append(s.order, tx.ID)
		report.Added++
	}
	s.recomputeStats()
	return report
}

// Transaction returns a copy of one transaction.
func (s *Store) Transaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return core.Transaction{}, false
	}
	return *tx, true
}

// Transactions returns copies of all transactions in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.transactions[id])
	}
	return out
}

// DeleteTransaction removes one transaction and its lock, if any.
func (s *Store) DeleteTransaction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transactions[id]; !ok {
		return &core.NotFoundError{Kind: "transaction", ID: id}
	}
	delete(s.transactions, id)
	delete(s.locks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.recomputeStats()
	return nil
}

// Stats returns the statistics derived from the latest mutation.
func (s *Store) Stats() core.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Reset clears transactions, rules, locks and the category tree.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// ResetTransactions wipes transactions and locks while keeping rules and the
// category tree, the "reimport from scratch" pattern.
func (s *Store) ResetTransactions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = make(map[string]*core.Transaction)
	s.order = nil
	s.locks = make(map[string]core.Lock)
	s.recomputeStats()
}

func (s *Store) resetLocked() {
	s.transactions = make(map[string]*core.Transaction)
	s.order = nil
	s.mains = make(map[string]*core.MainCategory)
	s.mainOrder = nil
	s.subs = make(map[string]*core.SubCategory)
	s.rules = make(map[string]core.Rule)
	s.locks = make(map[string]core.Lock)
	s.recomputeStats()
}

// Snapshot returns a deep copy of the full state for persistence. The copy
// shares nothing with the live store.
func (s *Store) Snapshot() core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := core.Snapshot{
		Transactions:   make([]core.Transaction, 0, len(s.order)),
		MainCategories: make([]core.MainCategory, 0, len(s.mainOrder)),
		SubCategories:  make([]core.SubCategory, 0, len(s.subs)),
		Rules:          make([]core.Rule, 0, len(s.rules)),
		Locks:          make([]core.Lock, 0, len(s.locks)),
	}
	for _, id := range s.order {
		snap.Transactions = append(snap.Transactions, *s.transactions[id])
	}
	for _, id := range s.mainOrder {
		mc := *s.mains[id]
		mc.SubcategoryIDs = append([]string(nil), s.mains[id].SubcategoryIDs...)
		snap.MainCategories = append(snap.MainCategories, mc)
	}
	for _, sub := range s.subs {
		snap.SubCategories = append(snap.SubCategories, *sub)
	}
	sort.Slice(snap.SubCategories, func(i, j int) bool {
		return snap.SubCategories[i].ID < snap.SubCategories[j].ID
	})
	for _, r := range s.rules {
		snap.Rules = append(snap.Rules, r)
	}
	sort.Slice(snap.Rules, func(i, j int) bool { return snap.Rules[i].Text < snap.Rules[j].Text })
	for _, l := range s.locks {
		snap.Locks = append(snap.Locks, l)
	}
	sort.Slice(snap.Locks, func(i, j int) bool {
		return snap.Locks[i].TransactionID < snap.Locks[j].TransactionID
	})
	snap.Meta = core.SnapshotMeta{
		SavedAt:          s.now().UTC().Format(time.RFC3339),
		Version:          core.SnapshotVersion,
		TransactionCount: len(snap.Transactions),
		RuleCount:        len(snap.Rules),
	}
	return snap
}

// Restore replaces the whole state with a loaded snapshot. Loads are full
// replaces, never merges.
func (s *Store) Restore(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	for _, tx := range snap.Transactions {
		stored := tx
		if stored.ID == "" {
			stored.ID = core.TransactionFingerprint(stored)
		}
		if _, dup := s.transactions[stored.ID]; dup {
			continue
		}
		s.transactions[stored.ID] = &stored
		s.order = append(s.order, stored.ID)
	}
	for _, mc := range snap.MainCategories {
		stored := mc
		stored.SubcategoryIDs = append([]string(nil), mc.SubcategoryIDs...)
		s.mains[stored.ID] = &stored
		s.mainOrder = append(s.mainOrder, stored.ID)
	}
	for _, sub := range snap.SubCategories {
		stored := sub
		s.subs[stored.ID] = &stored
	}
	for _, r := range snap.Rules {
		s.rules[core.NormalizeRuleText(r.Text)] = core.Rule{Text: core.NormalizeRuleText(r.Text), CategoryID: r.CategoryID}
	}
	for _, l := range snap.Locks {
		s.locks[l.TransactionID] = l
		if tx, ok := s.transactions[l.TransactionID]; ok {
			tx.Locked = true
			tx.CategoryID = l.CategoryID
		}
	}
	s.recomputeStats()
}

// RestoreRulesAndCategories loads rules and the category tree from a snapshot
// while wiping transactions, the explicit "keep my setup, start data over"
// reset pattern.
func (s *Store) RestoreRulesAndCategories(snap core.Snapshot) {
	snap.Transactions = nil
	snap.Locks = nil
	s.Restore(snap)
}

// recomputeStats runs under the write lock after every mutation.
func (s *Store) recomputeStats() {
	st := core.Statistics{Total: len(s.transactions)}
	patterns := make(map[string]struct{})
	for _, tx := range s.transactions {
		if tx.IsCategorized() {
			st.Categorized++
		} else {
			st.Uncategorized++
		}
		if tx.Locked {
			st.Locked++
		}
		if key := core.NormalizeRuleText(tx.Description); key != "" {
			patterns[key] = struct{}{}
		}
	}
	st.DistinctPatterns = len(patterns)
	for key := range patterns {
		if _, ok := s.rules[key]; ok {
			st.PatternsWithRule++
		}
	}
	s.stats = st
}
