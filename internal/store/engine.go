package store

import (
	"time"

	"konto/internal/core"
)

// Categorize assigns a category to one transaction. An empty categoryID
// clears the assignment. Locked transactions are never changed here; the
// caller gets a LockedError and must unlock first. When createRule is set,
// the rule for the transaction's normalized description is upserted,
// overwriting any prior rule for that text.
func (s *Store) Categorize(transactionID, categoryID string, createRule bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return &core.NotFoundError{Kind: "transaction", ID: transactionID}
	}
	if tx.Locked {
		return &core.LockedError{TransactionID: transactionID}
	}
	if categoryID != "" && !s.categoryExists(categoryID) {
		return &core.NotFoundError{Kind: "category", ID: categoryID}
	}

	tx.CategoryID = categoryID
	if createRule && categoryID != "" {
		if text := core.NormalizeRuleText(tx.Description); text != "" {
			s.rules[text] = core.Rule{Text: text, CategoryID: categoryID}
		}
	}
	s.recomputeStats()
	return nil
}

// UpsertRule records a text rule directly, last write wins per normalized text.
func (s *Store) UpsertRule(text, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := core.NormalizeRuleText(text)
	if normalized == "" {
		return core.Validationf("rule text must not be empty")
	}
	if !s.categoryExists(categoryID) {
		return &core.NotFoundError{Kind: "category", ID: categoryID}
	}
	s.rules[normalized] = core.Rule{Text: normalized, CategoryID: categoryID}
	s.recomputeStats()
	return nil
}

// DeleteRule removes the rule for the given text, if present.
func (s *Store) DeleteRule(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, core.NormalizeRuleText(text))
	s.recomputeStats()
}

// Rules returns a copy of the rule table.
func (s *Store) Rules() []core.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	return out
}

// ApplyRulesToAll re-applies the rule table to every unlocked transaction.
// Rules carry the user's most recent intent, so a matching transaction is
// recategorized even when it already has a different category. Transactions
// without a matching rule keep whatever they have. Returns the number of
// transactions whose category changed.
func (s *Store) ApplyRulesToAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, tx := range s.transactions {
		if tx.Locked {
			continue
		}
		rule, ok := s.rules[core.NormalizeRuleText(tx.Description)]
		if !ok {
			continue
		}
		if tx.CategoryID != rule.CategoryID {
			tx.CategoryID = rule.CategoryID
			changed++
		}
	}
	if changed > 0 {
		s.recomputeStats()
	}
	return changed
}

// Lock freezes a transaction's category. The category is confirmed at lock
// time, so an uncategorized transaction cannot be locked without one.
func (s *Store) Lock(transactionID, categoryID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockLocked(transactionID, categoryID, reason)
}

func (s *Store) lockLocked(transactionID, categoryID, reason string) error {
	tx, ok := s.transactions[transactionID]
	if !ok {
		return &core.NotFoundError{Kind: "transaction", ID: transactionID}
	}
	if categoryID == "" {
		return core.Validationf("cannot lock transaction %q without a category", transactionID)
	}
	if !s.categoryExists(categoryID) {
		return &core.NotFoundError{Kind: "category", ID: categoryID}
	}
	tx.CategoryID = categoryID
	tx.Locked = true
	s.locks[transactionID] = core.Lock{
		TransactionID: transactionID,
		CategoryID:    categoryID,
		Reason:        reason,
		LockedAt:      s.now().UTC().Format(time.RFC3339),
	}
	s.recomputeStats()
	return nil
}

// Unlock releases a lock. The category assignment stays as it is until the
// next rule application or manual categorize.
func (s *Store) Unlock(transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return &core.NotFoundError{Kind: "transaction", ID: transactionID}
	}
	tx.Locked = false
	delete(s.locks, transactionID)
	s.recomputeStats()
	return nil
}

// Locks returns a copy of the lock table.
func (s *Store) Locks() []core.Lock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Lock, 0, len(s.locks))
	for _, l := range s.locks {
		out = append(out, l)
	}
	return out
}

// BulkCategorizeRequest categorizes many transactions in one pass,
// optionally creating a rule per distinct description and locking each
// transaction afterwards.
type BulkCategorizeRequest struct {
	TransactionIDs   []string `json:"transactionIds"`
	CategoryID       string   `json:"categoryId"`
	CreateRule       bool     `json:"createRule"`
	LockTransactions bool     `json:"lockTransactions"`
	LockReason       string   `json:"lockReason,omitempty"`
}

// BulkFailure is one failed id within a bulk request.
type BulkFailure struct {
	TransactionID string `json:"transactionId"`
	Reason        string `json:"reason"`
}

// BulkReport lists what a bulk request applied and what it skipped.
type BulkReport struct {
	Applied  []string      `json:"applied"`
	Failures []BulkFailure `json:"failures,omitempty"`
}

// BulkCategorize applies the request to each id. A failing id never aborts
// the rest of the batch; failures are collected into the report.
func (s *Store) BulkCategorize(req BulkCategorizeRequest) BulkReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := BulkReport{}
	for _, id := range req.TransactionIDs {
		tx, ok := s.transactions[id]
		if !ok {
			report.Failures = append(report.Failures, BulkFailure{
				TransactionID: id,
				Reason:        (&core.NotFoundError{Kind: "transaction", ID: id}).Error(),
			})
			continue
		}
		if tx.Locked {
			report.Failures = append(report.Failures, BulkFailure{
				TransactionID: id,
				Reason:        (&core.LockedError{TransactionID: id}).Error(),
			})
			continue
		}
		if req.CategoryID != "" && !s.categoryExists(req.CategoryID) {
			report.Failures = append(report.Failures, BulkFailure{
				TransactionID: id,
				Reason:        (&core.NotFoundError{Kind: "category", ID: req.CategoryID}).Error(),
			})
			continue
		}
		tx.CategoryID = req.CategoryID
		if req.CreateRule && req.CategoryID != "" {
			if text := core.NormalizeRuleText(tx.Description); text != "" {
				s.rules[text] = core.Rule{Text: text, CategoryID: req.CategoryID}
			}
		}
		if req.LockTransactions && req.CategoryID != "" {
			if err := s.lockLocked(id, req.CategoryID, req.LockReason); err != nil {
				report.Failures = append(report.Failures, BulkFailure{TransactionID: id, Reason: err.Error()})
				continue
			}
		}
		report.Applied = append(report.Applied, id)
	}
	s.recomputeStats()
	return report
}
