// lifestory/controllers/stories.go
package controllers

import (
	"context"

	"lifestory/lifestory/services/aggregator"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
)

type StoriesController struct {
	aggregator *aggregator.Aggregator
	stories    *dao.StoryDAO
}

func NewStoriesController(agg *aggregator.Aggregator, stories *dao.StoryDAO) *StoriesController {
	return &StoriesController{aggregator: agg, stories: stories}
}

// RequestFullStory delegates to the aggregator and propagates its errors
// unchanged (InsufficientApprovedDrafts, ConcurrentModification, ...).
func (c *StoriesController) RequestFullStory(ctx context.Context, actor string, sessionID uuid.UUID) (*models.FullLifeStory, error) {
	return c.aggregator.Aggregate(ctx, sessionID, actor)
}

// GetStoryVersions lists all generated versions for a session, newest first.
func (c *StoriesController) GetStoryVersions(ctx context.Context, sessionID uuid.UUID) ([]models.FullLifeStory, error) {
	stories, err := c.stories.GetStoryVersions(ctx, sessionID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return stories, nil
}
