package http

import (
	"net/http"

	"konto/internal/core"
)

type categoryTreeEntry struct {
	Main core.MainCategory  `json:"main"`
	Subs []core.SubCategory `json:"subs"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	mains := s.store.MainCategories()
	tree := make([]categoryTreeEntry, 0, len(mains))
	for _, mc := range mains {
		tree = append(tree, categoryTreeEntry{
			Main: mc,
			Subs: s.store.SubCategories(mc.ID),
		})
	}
	respondJSON(w, http.StatusOK, tree)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	node, ok := s.store.CategoryTreeLookup(id)
	if !ok {
		respondDomainError(w, &core.NotFoundError{Kind: "category", ID: id})
		return
	}
	respondJSON(w, http.StatusOK, node)
}

type createMainCategoryRequest struct {
	Name                 string `json:"name"`
	IsIncome             bool   `json:"isIncome"`
	HideFromCategoryPage bool   `json:"hideFromCategoryPage"`
}

func (s *Server) handleCreateMainCategory(w http.ResponseWriter, r *http.Request) {
	var req createMainCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	mc, err := s.store.CreateMainCategory(req.Name, req.IsIncome, req.HideFromCategoryPage)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusCreated, mc)
}

func (s *Server) handleDeleteMainCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMainCategory(r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusNoContent, nil)
}

type createSubCategoryRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateSubCategory(w http.ResponseWriter, r *http.Request) {
	var req createSubCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	sc, err := s.store.CreateSubCategory(req.Name, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusCreated, sc)
}

func (s *Server) handleDeleteSubCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubCategory(r.PathValue("id")); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusNoContent, nil)
}

type reorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.store.ReorderMainCategories(req.IDs); err != nil {
		respondDomainError(w, err)
		return
	}
	s.invalidateViews()
	respondJSON(w, http.StatusOK, s.store.MainCategories())
}
