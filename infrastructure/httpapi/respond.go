package httpapi

import (
	"chatrooms/errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodySize = 1 << 20

type errorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError classifies err with the shared taxonomy. Unknown errors are
// logged and reported without their text.
func writeError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Code:      status,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: unreadable body: %v", errors.ErrValidation, err)
	}
	if err = json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errors.ErrValidation, err)
	}
	return nil
}

// intQuery reads an optional integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errors.ErrValidation, name)
	}
	return v, nil
}
