// lifestory/services/aggregator/aggregator.go
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/services/summarizer"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"
	"lifestory/lifestory/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Aggregator merges a session's approved drafts into a new immutable
// FullLifeStory version. The external summarization call runs without any
// entity lock; the approved-draft set is re-read before committing and the
// whole aggregation restarts once if it changed.
type Aggregator struct {
	db         *gorm.DB
	sessions   *dao.SessionDAO
	interviews *dao.InterviewDAO
	drafts     *dao.DraftDAO
	stories    *dao.StoryDAO
	history    *dao.HistoryDAO
	summarizer summarizer.Summarizer
	clock      lifecycle.Clock
	timeout    time.Duration
	model      string
}

func New(
	db *gorm.DB,
	sessions *dao.SessionDAO,
	interviews *dao.InterviewDAO,
	drafts *dao.DraftDAO,
	stories *dao.StoryDAO,
	history *dao.HistoryDAO,
	sum summarizer.Summarizer,
	clock lifecycle.Clock,
	timeout time.Duration,
	model string,
) *Aggregator {
	return &Aggregator{
		db:         db,
		sessions:   sessions,
		interviews: interviews,
		drafts:     drafts,
		stories:    stories,
		history:    history,
		summarizer: sum,
		clock:      clock,
		timeout:    timeout,
		model:      model,
	}
}

// Aggregate runs the full pipeline for one session. On a second
// approved-set mismatch (or version race) it fails with
// ErrConcurrentModification instead of looping.
func (a *Aggregator) Aggregate(ctx context.Context, sessionID uuid.UUID, actor string) (*models.FullLifeStory, error) {
	defer logging.LogDuration(ctx, "aggregate_full_story")()

	session, err := a.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, &lifecycle.StorageUnavailableError{Err: err}
	}
	if session == nil {
		return nil, lifecycle.ErrNotFound
	}

	for attempt := 0; attempt < 2; attempt++ {
		story, restart, err := a.attempt(ctx, session, actor)
		if err != nil {
			return nil, err
		}
		if !restart {
			return story, nil
		}
	}
	return nil, lifecycle.ErrConcurrentModification
}

// attempt performs one read -> summarize -> re-validate -> commit cycle.
// restart=true asks the caller to run the cycle again from a fresh read.
func (a *Aggregator) attempt(ctx context.Context, session *models.Session, actor string) (*models.FullLifeStory, bool, error) {
	start := a.clock.Now()

	approved, err := a.drafts.GetDraftsBySessionAndStage(ctx, session.ID, models.DraftApproved)
	if err != nil {
		return nil, false, &lifecycle.StorageUnavailableError{Err: err}
	}
	if len(approved) == 0 {
		return nil, false, lifecycle.ErrInsufficientApprovedDrafts
	}

	interviews, err := a.interviews.GetInterviewsBySession(ctx, session.ID)
	if err != nil {
		return nil, false, &lifecycle.StorageUnavailableError{Err: err}
	}

	sections := buildSections(approved, interviews)
	merged := mergeSections(sections)

	// External capability call. No entity lock is held across it; a slow
	// summarizer never blocks concurrent draft edits.
	summary, themes := a.summarize(ctx, merged)
	if ctx.Err() != nil {
		// caller cancelled: commit nothing, record nothing
		return nil, false, ctx.Err()
	}

	// Re-validate: the approved set must not have changed while the
	// external call was in flight.
	recheck, err := a.drafts.GetDraftsBySessionAndStage(ctx, session.ID, models.DraftApproved)
	if err != nil {
		return nil, false, &lifecycle.StorageUnavailableError{Err: err}
	}
	if !sameDraftSet(approved, recheck) {
		return nil, true, nil
	}

	totalWords := countWords(summary)
	sourceIDs := make([]uuid.UUID, 0, len(approved))
	for _, d := range approved {
		sourceIDs = append(sourceIDs, d.ID)
	}
	for _, s := range sections {
		totalWords += s.WordCount
	}

	story := &models.FullLifeStory{
		SessionID:      session.ID,
		Title:          "The Life Story of " + session.ClientName,
		Summary:        summary,
		Sections:       sections,
		KeyThemes:      themes,
		TotalWords:     totalWords,
		ApprovedDrafts: len(approved),
		SourceDraftIDs: sourceIDs,
		AIModel:        a.model,
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxVersion, err := a.stories.WithTx(tx).MaxVersion(ctx, session.ID)
		if err != nil {
			return err
		}
		story.Version = maxVersion + 1
		story.ProcessingTimeMs = a.clock.Now().Sub(start).Milliseconds()
		if err := a.stories.WithTx(tx).CreateStory(ctx, story); err != nil {
			return err
		}
		return a.history.WithTx(tx).Append(ctx, &models.HistoryEntry{
			SubjectType: models.SubjectStory,
			SubjectID:   story.ID,
			Action:      "story_generated",
			NewValue:    storyChangeSummary(story),
			Actor:       actor,
			Timestamp:   a.clock.Now(),
		})
	})
	if dao.IsDuplicateVersion(err) {
		// another aggregation claimed this version number first
		return nil, true, nil
	}
	if err != nil {
		return nil, false, &lifecycle.StorageUnavailableError{Err: err}
	}
	return story, false, nil
}

// summarize invokes the external capability under its own timeout. Any
// failure degrades the story (empty summary, no themes) rather than aborting.
func (a *Aggregator) summarize(ctx context.Context, merged string) (string, []string) {
	sumCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	res, err := a.summarizer.Summarize(sumCtx, merged)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = lifecycle.ErrExternalCapabilityTimeout
		}
		logging.AppLogger.Warn("summarizer unavailable, producing degraded story",
			zap.Error(err))
		return "", nil
	}
	return res.Summary, res.KeyThemes
}

// buildSections orders draft content by the chronology of the interviews the
// drafts came from, not by draft creation order. Drafts with no resolvable
// source interview sort last, by creation time.
func buildSections(approved []models.Draft, interviews []models.Interview) []models.StorySection {
	type keyed struct {
		draft models.Draft
		at    time.Time
		itype models.InterviewType
		found bool
	}

	byID := make(map[uuid.UUID]models.Interview, len(interviews))
	for _, iv := range interviews {
		byID[iv.ID] = iv
	}

	entries := make([]keyed, 0, len(approved))
	for _, d := range approved {
		k := keyed{draft: d}
		for _, srcID := range d.SourceInterviewIDs {
			iv, ok := byID[srcID]
			if !ok {
				continue
			}
			if !k.found || iv.ScheduledAt.Before(k.at) {
				k.at = iv.ScheduledAt
				k.itype = iv.Type
				k.found = true
			}
		}
		entries = append(entries, k)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].found != entries[j].found {
			return entries[i].found
		}
		if entries[i].found {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].draft.CreatedAt.Before(entries[j].draft.CreatedAt)
	})

	sections := make([]models.StorySection, 0, len(entries))
	for _, e := range entries {
		title := e.draft.Title
		if title == "" {
			title = sectionTitle(e.itype)
		}
		sections = append(sections, models.StorySection{
			Title:         title,
			Content:       e.draft.Content,
			InterviewType: e.itype,
			WordCount:     countWords(e.draft.Content),
		})
	}
	return sections
}

func sectionTitle(t models.InterviewType) string {
	switch t {
	case models.InterviewPersonalBackground:
		return "Personal Background"
	case models.InterviewCareerAchievements:
		return "Career & Achievements"
	case models.InterviewRelationshipsFamily:
		return "Relationships & Family"
	case models.InterviewLifeEvents:
		return "Life Events & Milestones"
	case models.InterviewWisdomReflection:
		return "Wisdom & Reflection"
	case models.InterviewFriend:
		return "Through a Friend's Eyes"
	}
	return "Untitled Chapter"
}

func mergeSections(sections []models.StorySection) string {
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(s.Title)
		b.WriteString("\n\n")
		b.WriteString(s.Content)
	}
	return b.String()
}

func countWords(s string) int {
	return len(strings.Fields(s))
}

func sameDraftSet(a, b []models.Draft) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[uuid.UUID]struct{}, len(a))
	for _, d := range a {
		ids[d.ID] = struct{}{}
	}
	for _, d := range b {
		if _, ok := ids[d.ID]; !ok {
			return false
		}
	}
	return true
}

func storyChangeSummary(story *models.FullLifeStory) string {
	return fmt.Sprintf("version %d from %d approved draft(s)", story.Version, story.ApprovedDrafts)
}
