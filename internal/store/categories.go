package store

import (
	"strings"

	"github.com/google/uuid"

	"konto/internal/core"
)

// CategoryNode is the result of a tree lookup: the matched category plus its
// children when the id names a main category.
type CategoryNode struct {
	Main     *core.MainCategory `json:"main,omitempty"`
	Sub      *core.SubCategory  `json:"sub,omitempty"`
	Children []core.SubCategory `json:"children,omitempty"`
}

// CreateMainCategory adds a top-level category. Names are unique within the
// tree; the new category sorts last.
func (s *Store) CreateMainCategory(name string, isIncome, hideFromCategoryPage bool) (core.MainCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return core.MainCategory{}, core.Validationf("main category name must not be empty")
	}
	for _, mc := range s.mains {
		if strings.EqualFold(mc.Name, name) {
			return core.MainCategory{}, core.Validationf("main category %q already exists", name)
		}
	}
	mc := core.MainCategory{
		ID:                   uuid.NewString(),
		Name:                 name,
		SortOrder:            len(s.mainOrder),
		IsIncome:             isIncome,
		HideFromCategoryPage: hideFromCategoryPage,
	}
	stored := mc
	s.mains[mc.ID] = &stored
	s.mainOrder = append(s.mainOrder, mc.ID)
	return mc, nil
}

// CreateSubCategory adds a second-level category under an existing parent.
func (s *Store) CreateSubCategory(name, parentID string) (core.SubCategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return core.SubCategory{}, core.Validationf("subcategory name must not be empty")
	}
	parent, ok := s.mains[parentID]
	if !ok {
		return core.SubCategory{}, &core.NotFoundError{Kind: "main category", ID: parentID}
	}
	sub := core.SubCategory{
		ID:             uuid.NewString(),
		Name:           name,
		MainCategoryID: parentID,
	}
	stored := sub
	s.subs[sub.ID] = &stored
	parent.SubcategoryIDs = append(parent.SubcategoryIDs, sub.ID)
	return sub, nil
}

// DeleteMainCategory removes a main category, its subcategories, and every
// reference to them: transactions are cleared back to uncategorized (locks on
// them are dropped, their category no longer exists) and rules targeting the
// deleted ids are removed. Cascade-clear is the one deletion policy.
func (s *Store) DeleteMainCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mc, ok := s.mains[id]
	if !ok {
		return &core.NotFoundError{Kind: "main category", ID: id}
	}
	removed := map[string]struct{}{id: {}}
	for _, subID := range mc.SubcategoryIDs {
		removed[subID] = struct{}{}
		delete(s.subs, subID)
	}
	delete(s.mains, id)
	for i, oid := range s.mainOrder {
		if oid == id {
			s.mainOrder = append(s.mainOrder[:i], s.mainOrder[i+1:]...)
			break
		}
	}
	s.reindexSortOrder()
	s.detachCategoryRefs(removed)
	s.recomputeStats()
	return nil
}

// DeleteSubCategory removes one subcategory with the same cascade-clear
// policy as DeleteMainCategory.
func (s *Store) DeleteSubCategory(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	if !ok {
		return &core.NotFoundError{Kind: "subcategory", ID: id}
	}
	delete(s.subs, id)
	if parent, ok := s.mains[sub.MainCategoryID]; ok {
		for i, sid := range parent.SubcategoryIDs {
			if sid == id {
				parent.SubcategoryIDs = append(parent.SubcategoryIDs[:i], parent.SubcategoryIDs[i+1:]...)
				break
			}
		}
	}
	s.detachCategoryRefs(map[string]struct{}{id: {}})
	s.recomputeStats()
	return nil
}

// detachCategoryRefs clears transactions, locks and rules pointing at any of
// the removed category ids. Runs under the write lock.
func (s *Store) detachCategoryRefs(removed map[string]struct{}) {
	for _, tx := range s.transactions {
		if _, gone := removed[tx.CategoryID]; gone {
			tx.CategoryID = ""
			tx.Locked = false
			delete(s.locks, tx.ID)
		}
	}
	for text, rule := range s.rules {
		if _, gone := removed[rule.CategoryID]; gone {
			delete(s.rules, text)
		}
	}
}

// ReorderMainCategories accepts the full new display order. The id set must
// match the existing main categories exactly.
func (s *Store) ReorderMainCategories(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.mainOrder) {
		return core.Validationf("reorder list has %d ids, store has %d main categories", len(ids), len(s.mainOrder))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.mains[id]; !ok {
			return core.Validationf("reorder list contains unknown id %q", id)
		}
		if _, dup := seen[id]; dup {
			return core.Validationf("reorder list contains id %q twice", id)
		}
		seen[id] = struct{}{}
	}
	s.mainOrder = append([]string(nil), ids...)
	s.reindexSortOrder()
	return nil
}

func (s *Store) reindexSortOrder() {
	for i, id := range s.mainOrder {
		s.mains[id].SortOrder = i
	}
}

// CategoryTreeLookup resolves an id to its node, or reports false when the id
// names neither a main category nor a subcategory.
func (s *Store) CategoryTreeLookup(id string) (CategoryNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if mc, ok := s.mains[id]; ok {
		node := CategoryNode{Main: copyMain(mc)}
		for _, subID := range mc.SubcategoryIDs {
			if sub, ok := s.subs[subID]; ok {
				node.Children = append(node.Children, *sub)
			}
		}
		return node, true
	}
	if sub, ok := s.subs[id]; ok {
		c := *sub
		return CategoryNode{Sub: &c}, true
	}
	return CategoryNode{}, false
}

// MainCategories returns copies in display order.
func (s *Store) MainCategories() []core.MainCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MainCategory, 0, len(s.mainOrder))
	for _, id := range s.mainOrder {
		out = append(out, *copyMain(s.mains[id]))
	}
	return out
}

// SubCategories returns copies of a main category's children in list order.
func (s *Store) SubCategories(mainID string) []core.SubCategory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mc, ok := s.mains[mainID]
	if !ok {
		return nil
	}
	out := make([]core.SubCategory, 0, len(mc.SubcategoryIDs))
	for _, subID := range mc.SubcategoryIDs {
		if sub, ok := s.subs[subID]; ok {
			out = append(out, *sub)
		}
	}
	return out
}

// categoryExists runs under either lock. The transfer sentinel is a valid
// assignment target even though it never appears in budget views.
func (s *Store) categoryExists(id string) bool {
	if id == core.TransferCategoryID {
		return true
	}
	if _, ok := s.mains[id]; ok {
		return true
	}
	_, ok := s.subs[id]
	return ok
}

func copyMain(mc *core.MainCategory) *core.MainCategory {
	c := *mc
	c.SubcategoryIDs = append([]string(nil), mc.SubcategoryIDs...)
	return &c
}
