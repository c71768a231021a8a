// lifestory/routes/history.go
package routes

import (
	"net/http"
	"strconv"
	"time"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/middlewares"
	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func HistoryRoutes(ctrl *controllers.HistoryController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Audit trail for any subject, filterable by action/actor/date range
		gr.Get("/{subject_id}", handleJSON(func(r *http.Request) (any, int, error) {
			subjectID, err := uuid.Parse(chi.URLParam(r, "subject_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			q := r.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			offset, _ := strconv.Atoi(q.Get("offset"))
			filter := dao.HistoryFilter{
				Action: q.Get("action"),
				Actor:  q.Get("actor"),
				Limit:  limit,
				Offset: offset,
			}
			if from := q.Get("from"); from != "" {
				t, err := time.Parse(time.RFC3339, from)
				if err != nil {
					return nil, 0, &lifecycle.ValidationError{Field: "from", Reason: "not an RFC3339 timestamp"}
				}
				filter.From = t
			}
			if to := q.Get("to"); to != "" {
				t, err := time.Parse(time.RFC3339, to)
				if err != nil {
					return nil, 0, &lifecycle.ValidationError{Field: "to", Reason: "not an RFC3339 timestamp"}
				}
				filter.To = t
			}
			entries, err := ctrl.GetHistory(r.Context(), subjectID, filter)
			if err != nil {
				return nil, 0, err
			}
			return entries, http.StatusOK, nil
		}))
	})
	return r
}
