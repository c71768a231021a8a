// lifestory/routes/sessions.go
package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/middlewares"
	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func SessionRoutes(ctrl *controllers.SessionsController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Schedule an interview, creating the session when needed
		gr.Post("/interviews", handleJSON(func(r *http.Request) (any, int, error) {
			var req controllers.ScheduleInterviewRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			interview, err := ctrl.ScheduleInterview(r.Context(), actorFrom(r), req)
			if err != nil {
				return nil, 0, err
			}
			return interview, http.StatusCreated, nil
		}))

		// List sessions
		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			q := r.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			offset, _ := strconv.Atoi(q.Get("offset"))
			filter := dao.ListSessionsFilter{
				ClientName: q.Get("client"),
				SortBy:     q.Get("sort_by"),
				SortDesc:   q.Get("order") == "desc",
				Limit:      limit,
				Offset:     offset,
			}
			// status and priority are closed vocabularies; unknown values
			// are rejected, not passed through as empty matches
			if s := q.Get("status"); s != "" {
				status, err := lifecycle.ParseSessionStatus(s)
				if err != nil {
					return nil, 0, err
				}
				filter.Status = status
			}
			if p := q.Get("priority"); p != "" {
				priority, err := lifecycle.ParsePriorityLevel(p)
				if err != nil {
					return nil, 0, err
				}
				filter.Priority = priority
			}
			sessions, total, err := ctrl.ListSessions(r.Context(), filter)
			if err != nil {
				return nil, 0, err
			}
			return map[string]any{"sessions": sessions, "total": total}, http.StatusOK, nil
		}))

		// Get single session
		gr.Get("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			session, err := ctrl.GetSession(r.Context(), id)
			if err != nil {
				return nil, 0, err
			}
			return session, http.StatusOK, nil
		}))

		// Derived metrics for the admin dashboard
		gr.Get("/{id}/stats", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			stats, err := ctrl.GetSessionStats(r.Context(), id)
			if err != nil {
				return nil, 0, err
			}
			return stats, http.StatusOK, nil
		}))

		// Validated stage advance
		gr.Post("/{id}/stage", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req struct {
				Status string `json:"status"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			session, err := ctrl.AdvanceSessionStage(r.Context(), actorFrom(r), id, req.Status)
			if err != nil {
				return nil, 0, err
			}
			return session, http.StatusOK, nil
		}))

		// Explicit override, the only path that can regress a status
		gr.Post("/{id}/override", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			var req struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, 0, badJSON(err)
			}
			session, err := ctrl.OverrideSessionStatus(r.Context(), actorFrom(r), id, req.Status, req.Reason)
			if err != nil {
				return nil, 0, err
			}
			return session, http.StatusOK, nil
		}))

		// Delete session and everything it owns
		gr.Delete("/{id}", handleJSON(func(r *http.Request) (any, int, error) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			if err := ctrl.DeleteSession(r.Context(), actorFrom(r), id); err != nil {
				return nil, 0, err
			}
			return map[string]string{"status": "deleted"}, http.StatusOK, nil
		}))
	})
	return r
}
