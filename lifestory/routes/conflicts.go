// lifestory/routes/conflicts.go
package routes

import (
	"encoding/json"
	"net/http"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/middlewares"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func ConflictRoutes(ctrl *controllers.ConflictsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Run the advisory conflict scan
		gr.Post("/session/{session_id}/detect", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			found, err := ctrl.DetectConflicts(r.Context(), sessionID)
			if err != nil {
				return nil, 0, err
			}
			return found, http.StatusOK, nil
		}))

		// List known conflicts (?unresolved=true to hide resolved ones)
		gr.Get("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			found, err := ctrl.GetConflictsBySession(r.Context(), sessionID, r.URL.Query().Get("unresolved") == "true")
			if err != nil {
				return nil, 0, err
			}
			return found, http.StatusOK, nil
		}))

		// Resolve a conflict, optionally revising a draft
		gr.Post("/{id}/resolve", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req controllers.ResolveConflictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			conflict, err := ctrl.ResolveConflict(r.Context(), actorFrom(r), id, req)
			if err != nil {
				return nil, 0, err
			}
			return conflict, http.StatusOK, nil
		}))
	})
	return r
}
