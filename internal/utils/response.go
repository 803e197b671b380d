package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
)

// Envelope is the wire shape every HTTP response uses: {status: "success"
// | "error", data?, code?, message?}. Per the design, HTTP status is
// always 200 even for logical errors; clients dispatch on `status`.
type Envelope struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// RespondJSON writes v as JSON with the given HTTP status code.
func RespondJSON(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		}
	}
}

// RespondSuccess writes {status:"success", data} with HTTP 200.
func RespondSuccess(w http.ResponseWriter, data interface{}) {
	RespondJSON(w, Envelope{Status: "success", Data: data}, http.StatusOK)
}

// RespondError writes {status:"error", code, message} with HTTP 200 —
// the design always uses 200 for logical errors so clients dispatch on
// the envelope's status field rather than the transport status line.
func RespondError(w http.ResponseWriter, err error) {
	code := apperr.CodeOf(err)
	message := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}
	RespondJSON(w, Envelope{Status: "error", Code: string(code), Message: message}, http.StatusOK)
}

// ParseJSON decodes the request body into v.
func ParseJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
