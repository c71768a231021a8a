// lifestory/routes/drafts.go
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

func DraftRoutes(ctrl *controllers.DraftsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Submit a new draft (version 1 of a new lineage)
		gr.Post("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req controllers.SubmitDraftRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			draft, err := ctrl.SubmitDraft(r.Context(), actorFrom(r), sessionID, req)
			if err != nil {
				return nil, 0, err
			}
			return draft, http.StatusCreated, nil
		}))

		// List a session's drafts
		gr.Get("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			drafts, err := ctrl.GetDraftsBySession(r.Context(), sessionID)
			if err != nil {
				return nil, 0, err
			}
			return drafts, http.StatusOK, nil
		}))

		// Validated stage transition with reviewer reason
		gr.Post("/{id}/stage", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req struct {
				Stage  string `json:"stage"`
				Reason string `json:"reason"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			draft, err := ctrl.AdvanceDraftStage(r.Context(), actorFrom(r), id, req.Stage, req.Reason)
			if err != nil {
				return nil, 0, err
			}
			return draft, http.StatusOK, nil
		}))

		// Start the next version of a lineage (after rejection or correction)
		gr.Post("/{id}/versions", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req struct {
				Title   string `json:"title"`
				Content string `json:"content"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			draft, err := ctrl.CreateDraftVersion(r.Context(), actorFrom(r), id, req.Title, req.Content)
			if err != nil {
				return nil, 0, err
			}
			return draft, http.StatusCreated, nil
		}))

		// Full lineage of one draft, rejected versions included
		gr.Get("/{id}/history", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			lineage, err := ctrl.GetDraftHistory(r.Context(), id)
			if err != nil {
				return nil, 0, err
			}
			return lineage, http.StatusOK, nil
		}))
	})
	return r
}
