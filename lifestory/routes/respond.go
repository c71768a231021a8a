// lifestory/routes/respond.go
package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"lifestory/lifestory/middlewares"
	"lifestory/lifestory/services/lifecycle"
)

// handleJSON adapts a controller call to an HTTP response. The status the
// handler returns is used on success only; error statuses come from the
// taxonomy mapping below, keeping presentation out of the core.
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

// statusFor maps the error taxonomy to HTTP statuses.
func statusFor(err error) int {
	var (
		ve *lifecycle.ValidationError
		te *lifecycle.InvalidTransitionError
		se *lifecycle.StorageUnavailableError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &te):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrStaleState),
		errors.Is(err, lifecycle.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInsufficientApprovedDrafts):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func badJSON(err error) error {
	return &lifecycle.ValidationError{Field: "body", Reason: err.Error()}
}

func badID(err error) error {
	return &lifecycle.ValidationError{Field: "id", Reason: err.Error()}
}

// actorFrom reads the authenticated admin from the request context.
func actorFrom(r *http.Request) string {
	if actor, ok := r.Context().Value(middlewares.ActorKey).(string); ok && actor != "" {
		return actor
	}
	return "system"
}
