package handlers

import (
	"net/http"
	"time"

	"github.com/mesbahtanvir/docuchan/backend/internal/store"
	"github.com/mesbahtanvir/docuchan/backend/internal/utils"
)

// HealthHandler reports process uptime and Store Adapter connectivity.
type HealthHandler struct {
	store     store.Adapter
	startTime time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(adapter store.Adapter) *HealthHandler {
	return &HealthHandler{store: adapter, startTime: time.Now()}
}

// Handle processes GET /healthz. A successful Get against the
// reserved "_health" collection (present or not — only the absence of
// a transport error matters) reports the store as connected.
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	details := make(map[string]interface{})

	if _, err := h.store.Get(r.Context(), "_health", "_check"); err != nil {
		status = "degraded"
		details["store"] = "error"
		details["store_error"] = err.Error()
	} else {
		details["store"] = "connected"
	}

	details["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	details["status"] = status

	statusCode := http.StatusOK
	if status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, details, statusCode)
}
