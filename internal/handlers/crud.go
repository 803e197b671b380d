package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/query"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

// CRUDHandler maps the generic `/:collection` and `/:collection/:id`
// Request Surface (spec.md §6) straight onto the Store Adapter — no
// business logic lives here beyond routing, query decoding, and error
// serialization (spec.md §4.5).
type CRUDHandler struct {
	store  store.Adapter
	logger *zap.Logger
}

// NewCRUDHandler builds a CRUDHandler over adapter.
func NewCRUDHandler(adapter store.Adapter, logger *zap.Logger) *CRUDHandler {
	return &CRUDHandler{store: adapter, logger: logger}
}

type createResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Create handles POST /:collection.
func (h *CRUDHandler) Create(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	var doc map[string]interface{}
	if err := utils.ParseJSON(r, &doc); err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "invalid JSON body", err))
		return
	}

	id, err := h.store.Add(r.Context(), collection, doc)
	if err != nil {
		h.logger.Error("failed to create document", zap.String("collection", collection), zap.Error(err))
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, createResponse{ID: id, Path: collection + "/" + id})
}

type listItem struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

// List handles GET /:collection, decoding the Query Model from URL
// parameters (spec.md §4.2).
func (h *CRUDHandler) List(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]

	q, err := query.DecodeURL(r.URL.Query())
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	tr := query.Translate(q)

	docs, err := h.store.Query(r.Context(), collection, tr.Filter, tr.Sort, tr.Skip, tr.Limit)
	if err != nil {
		h.logger.Error("failed to query collection", zap.String("collection", collection), zap.Error(err))
		utils.RespondError(w, err)
		return
	}

	result := make([]listItem, len(docs))
	for i, d := range docs {
		id, _ := d["id"].(string)
		result[i] = listItem{ID: id, Data: d}
	}

	utils.RespondSuccess(w, result)
}

type documentResponse struct {
	ID   string                 `json:"id"`
	Path string                 `json:"path"`
	Data map[string]interface{} `json:"data"`
}

// Get handles GET /:collection/:id.
func (h *CRUDHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, id := vars["collection"], vars["id"]

	doc, err := h.store.Get(r.Context(), collection, id)
	if err != nil {
		h.logger.Error("failed to get document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		utils.RespondError(w, err)
		return
	}
	if doc == nil {
		utils.RespondError(w, apperr.New(apperr.DocumentNotFound, "document not found"))
		return
	}

	utils.RespondSuccess(w, documentResponse{ID: id, Path: collection + "/" + id, Data: doc})
}

type updateResponse struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Update handles PUT /:collection/:id with a shallow-merge patch
// (store.Adapter's documented Update semantics).
func (h *CRUDHandler) Update(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, id := vars["collection"], vars["id"]

	var patch map[string]interface{}
	if err := utils.ParseJSON(r, &patch); err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "invalid JSON body", err))
		return
	}

	existing, err := h.store.Get(r.Context(), collection, id)
	if err != nil {
		h.logger.Error("failed to look up document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		utils.RespondError(w, err)
		return
	}
	if existing == nil {
		utils.RespondError(w, apperr.New(apperr.DocumentNotFound, "document not found"))
		return
	}

	if _, err := h.store.Update(r.Context(), collection, id, patch); err != nil {
		h.logger.Error("failed to update document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, updateResponse{ID: id, Path: collection + "/" + id})
}

// Delete handles DELETE /:collection/:id.
func (h *CRUDHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, id := vars["collection"], vars["id"]

	ok, err := h.store.Delete(r.Context(), collection, id)
	if err != nil {
		h.logger.Error("failed to delete document", zap.String("collection", collection), zap.String("id", id), zap.Error(err))
		utils.RespondError(w, err)
		return
	}
	if !ok {
		utils.RespondError(w, apperr.New(apperr.DocumentNotFound, "document not found"))
		return
	}

	utils.RespondSuccess(w, updateResponse{ID: id, Path: collection + "/" + id})
}
