// lifestory/services/conflicts/detector.go
package conflicts

import (
	"context"
	"fmt"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Detector scans a session's drafts for contradictory factual claims.
// Conflicts are advisory: they are persisted for admin review and never gate
// a stage transition.
type Detector struct {
	drafts    *dao.DraftDAO
	conflicts *dao.ConflictDAO
	comparer  Comparer
}

func NewDetector(drafts *dao.DraftDAO, conflictsDAO *dao.ConflictDAO, comparer Comparer) *Detector {
	return &Detector{drafts: drafts, conflicts: conflictsDAO, comparer: comparer}
}

// DetectConflicts compares claims across drafts sourced from different
// interviews of the same session. Each disagreement is reported once per
// unordered draft pair and field, regardless of scan direction.
func (d *Detector) DetectConflicts(ctx context.Context, sessionID uuid.UUID) ([]models.Conflict, error) {
	drafts, err := d.drafts.GetDraftsBySession(ctx, sessionID)
	if err != nil {
		return nil, &lifecycle.StorageUnavailableError{Err: err}
	}

	// rejected versions are superseded; their claims no longer count
	live := drafts[:0]
	for _, draft := range drafts {
		if draft.Stage != models.DraftRejected {
			live = append(live, draft)
		}
	}

	// claim extraction is per-draft and independent; run it concurrently
	claims := make([][]Claim, len(live))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range live {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			claims[i] = d.comparer.ExtractClaims(&live[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var found []models.Conflict
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if sameSources(live[i].SourceInterviewIDs, live[j].SourceInterviewIDs) {
				continue
			}
			for _, ca := range claims[i] {
				for _, cb := range claims[j] {
					if ca.Field != cb.Field || ca.Value == cb.Value {
						continue
					}
					conflict := models.Conflict{
						SessionID: sessionID,
						DraftAID:  live[i].ID,
						DraftBID:  live[j].ID,
						Field:     ca.Field,
						Description: fmt.Sprintf(
							"drafts disagree on %s: %q vs %q", ca.Field, ca.Value, cb.Value),
					}
					key := pairKey(conflict.DraftAID, conflict.DraftBID, conflict.Field)
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
					if err := d.conflicts.UpsertConflict(ctx, &conflict); err != nil {
						return nil, &lifecycle.StorageUnavailableError{Err: err}
					}
					found = append(found, conflict)
				}
			}
		}
	}
	return found, nil
}

// pairKey normalizes the unordered pair so (A,B,field) and (B,A,field)
// collapse to one key.
func pairKey(a, b uuid.UUID, field string) string {
	if b.String() < a.String() {
		a, b = b, a
	}
	return a.String() + "|" + b.String() + "|" + field
}

func sameSources(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uuid.UUID]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}
