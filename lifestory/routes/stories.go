// lifestory/routes/stories.go
package routes

import (
	"net/http"

	"lifestory/lifestory/config"
	"lifestory/lifestory/controllers"
	"lifestory/lifestory/middlewares"
	"lifestory/lifestory/sources/psql/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// storyPayload is the single compatibility adapter for old UI clients that
// still read the flat processing_time field and the nested stats objects.
// The core model stays canonical; only this boundary re-shapes it.
type storyPayload struct {
	models.FullLifeStory
	ProcessingTime  int64          `json:"processing_time"`
	SourceMetadata  map[string]any `json:"source_metadata"`
	GenerationStats map[string]any `json:"generation_stats"`
}

func legacyStory(story *models.FullLifeStory) storyPayload {
	return storyPayload{
		FullLifeStory:  *story,
		ProcessingTime: story.ProcessingTimeMs,
		SourceMetadata: map[string]any{
			"approvedDrafts": story.ApprovedDrafts,
		},
		GenerationStats: map[string]any{
			"processingTime": story.ProcessingTimeMs,
			"aiModel":        story.AIModel,
		},
	}
}

func StoryRoutes(ctrl *controllers.StoriesController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// Aggregate approved drafts into the next story version
		gr.Post("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			story, err := ctrl.RequestFullStory(r.Context(), actorFrom(r), sessionID)
			if err != nil {
				return nil, 0, err
			}
			return legacyStory(story), http.StatusCreated, nil
		}))

		// All generated versions, newest first
		gr.Get("/session/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
			if err != nil {
				return nil, 0, badID(err)
			}
			stories, err := ctrl.GetStoryVersions(r.Context(), sessionID)
			if err != nil {
				return nil, 0, err
			}
			payload := make([]storyPayload, 0, len(stories))
			for i := range stories {
				payload = append(payload, legacyStory(&stories[i]))
			}
			return payload, http.StatusOK, nil
		}))
	})
	return r
}
