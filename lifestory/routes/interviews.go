// lifestory/routes/interviews.go
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

func InterviewRoutes(ctrl *controllers.SessionsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Record an interview outcome (completed, cancelled, ...)
		gr.Post("/{id}/result", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req controllers.InterviewOutcome
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			interview, err := ctrl.RecordInterviewResult(r.Context(), actorFrom(r), id, req)
			if err != nil {
				return nil, 0, err
			}
			return interview, http.StatusOK, nil
		}))
	})
	return r
}
