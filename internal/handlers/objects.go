package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/objectstore"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

const defaultSignedURLTTL = 15 * time.Minute

// ObjectHandler maps opaque-blob storage onto the Object Store façade
// (spec.md §1, "an object-storage façade for opaque binary blobs").
type ObjectHandler struct {
	store  *objectstore.Store
	logger *zap.Logger
}

// NewObjectHandler builds an ObjectHandler over store.
func NewObjectHandler(store *objectstore.Store, logger *zap.Logger) *ObjectHandler {
	return &ObjectHandler{store: store, logger: logger}
}

// Put handles PUT /objects/{path:.*}, storing the request body at path.
func (h *ObjectHandler) Put(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	data, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondError(w, apperr.Wrap(apperr.InvalidArgument, "failed to read request body", err))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if err := h.store.Put(r.Context(), path, data, contentType); err != nil {
		utils.RespondError(w, err)
		return
	}

	utils.RespondSuccess(w, map[string]string{"path": path})
}

// Get handles GET /objects/{path:.*}, streaming the blob's bytes back
// with its stored content type.
func (h *ObjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	data, obj, err := h.store.Get(r.Context(), path)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	if obj == nil {
		utils.RespondError(w, apperr.New(apperr.DocumentNotFound, "no object at this path"))
		return
	}

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Delete handles DELETE /objects/{path:.*}.
func (h *ObjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	existed, err := h.store.Delete(r.Context(), path)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	if !existed {
		utils.RespondError(w, apperr.New(apperr.DocumentNotFound, "no object at this path"))
		return
	}
	utils.RespondSuccess(w, map[string]string{"path": path})
}

// SignedURL handles GET /objects/{path:.*}/signed-url, returning a
// time-limited GET URL for the blob.
func (h *ObjectHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	url, err := h.store.SignedURL(r.Context(), path, defaultSignedURLTTL)
	if err != nil {
		utils.RespondError(w, err)
		return
	}
	utils.RespondSuccess(w, map[string]string{"url": url})
}
