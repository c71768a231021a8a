// lifestory/controllers/history.go
package controllers

import (
	"context"

	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
)

type HistoryController struct {
	history *dao.HistoryDAO
}

func NewHistoryController(history *dao.HistoryDAO) *HistoryController {
	return &HistoryController{history: history}
}

// GetHistory is read-only and never blocks writers; it may observe slightly
// stale data.
func (c *HistoryController) GetHistory(ctx context.Context, subjectID uuid.UUID, filter dao.HistoryFilter) ([]models.HistoryEntry, error) {
	entries, err := c.history.GetHistory(ctx, subjectID, filter)
	if err != nil {
		return nil, wrapStorage(err)
	}
	return entries, nil
}
