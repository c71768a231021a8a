package aggregator

import (
	"context"
	"os"
	"testing"
	"time"

	"lifestory/lifestory/services/lifecycle"
	"lifestory/lifestory/services/summarizer"
	"lifestory/lifestory/sources/psql/dao"
	"lifestory/lifestory/sources/psql/models"
	"lifestory/lifestory/sources/psql/testdb"
	"lifestory/lifestory/utils/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logging.InitTestLogger()
	os.Exit(m.Run())
}

type stubSummarizer struct {
	fn    func(ctx context.Context, merged string) (*summarizer.Result, error)
	calls int
}

func (s *stubSummarizer) Summarize(ctx context.Context, merged string) (*summarizer.Result, error) {
	s.calls++
	if s.fn == nil {
		return &summarizer.Result{Summary: "a life well lived", KeyThemes: []string{"family"}}, nil
	}
	return s.fn(ctx, merged)
}

type fixture struct {
	db         *gorm.DB
	sessions   *dao.SessionDAO
	interviews *dao.InterviewDAO
	drafts     *dao.DraftDAO
	stories    *dao.StoryDAO
	history    *dao.HistoryDAO
	agg        *Aggregator
	stub       *stubSummarizer
	session    *models.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)
	f := &fixture{
		db:         db,
		sessions:   dao.NewSessionDAO(db),
		interviews: dao.NewInterviewDAO(db),
		drafts:     dao.NewDraftDAO(db),
		stories:    dao.NewStoryDAO(db),
		history:    dao.NewHistoryDAO(db),
		stub:       &stubSummarizer{},
	}
	clock := lifecycle.FixedClock{T: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.agg = New(db, f.sessions, f.interviews, f.drafts, f.stories, f.history,
		f.stub, clock, time.Second, "test-model")

	f.session = &models.Session{ClientName: "Margaret Hale", Status: models.SessionPendingReview}
	require.NoError(t, f.sessions.CreateSession(context.Background(), f.session))
	return f
}

func (f *fixture) addInterview(t *testing.T, scheduledAt time.Time, ivType models.InterviewType) *models.Interview {
	t.Helper()
	iv := &models.Interview{
		SessionID:   f.session.ID,
		Type:        ivType,
		ScheduledAt: scheduledAt,
		Status:      models.InterviewCompleted,
	}
	require.NoError(t, f.interviews.CreateInterview(context.Background(), iv))
	return iv
}

func (f *fixture) addDraft(t *testing.T, stage models.DraftStage, content string, sources ...uuid.UUID) *models.Draft {
	t.Helper()
	draft := &models.Draft{
		SessionID:          f.session.ID,
		LineageID:          uuid.New(),
		Version:            1,
		Stage:              stage,
		Content:            content,
		SourceInterviewIDs: sources,
	}
	require.NoError(t, f.drafts.CreateDraft(context.Background(), draft))
	return draft
}

func TestAggregateBuildsStoryInInterviewOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early := f.addInterview(t, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), models.InterviewPersonalBackground)
	late := f.addInterview(t, time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC), models.InterviewCareerAchievements)

	// created in reverse chronological order on purpose
	f.addDraft(t, models.DraftApproved, "She led the factory through hard winters.", late.ID)
	f.addDraft(t, models.DraftApproved, "Born in a mill town in the north.", early.ID)

	story, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.NoError(t, err)

	assert.Equal(t, 1, story.Version)
	assert.Equal(t, 2, story.ApprovedDrafts)
	require.Len(t, story.Sections, 2)
	assert.Equal(t, models.InterviewPersonalBackground, story.Sections[0].InterviewType)
	assert.Equal(t, models.InterviewCareerAchievements, story.Sections[1].InterviewType)

	// whitespace-delimited words across sections plus summary
	wantWords := 8 + 7 + 4
	assert.Equal(t, wantWords, story.TotalWords)
	assert.Equal(t, "a life well lived", story.Summary)
	assert.Equal(t, []string{"family"}, story.KeyThemes)
	assert.Equal(t, "test-model", story.AIModel)
	assert.Len(t, story.SourceDraftIDs, 2)

	entries, err := f.history.GetHistory(ctx, story.ID, dao.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "story_generated", entries[0].Action)
	assert.Equal(t, "admin", entries[0].Actor)
}

func TestAggregateFailsWithoutApprovedDrafts(t *testing.T) {
	f := newFixture(t)
	iv := f.addInterview(t, time.Now(), models.InterviewFriend)
	f.addDraft(t, models.DraftReviewed, "not approved yet", iv.ID)

	_, err := f.agg.Aggregate(context.Background(), f.session.ID, "admin")
	require.ErrorIs(t, err, lifecycle.ErrInsufficientApprovedDrafts)
	assert.Equal(t, 0, f.stub.calls, "summarizer must not run without approved drafts")
}

func TestAggregateUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.agg.Aggregate(context.Background(), uuid.New(), "admin")
	require.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestAggregateDegradesWhenSummarizerFails(t *testing.T) {
	f := newFixture(t)
	iv := f.addInterview(t, time.Now(), models.InterviewWisdomReflection)
	f.addDraft(t, models.DraftApproved, "Look after the people near you.", iv.ID)

	f.stub.fn = func(ctx context.Context, merged string) (*summarizer.Result, error) {
		return nil, context.DeadlineExceeded
	}

	story, err := f.agg.Aggregate(context.Background(), f.session.ID, "admin")
	require.NoError(t, err, "summarizer failure must not fail the aggregation")
	assert.Empty(t, story.Summary)
	assert.Empty(t, story.KeyThemes)
	assert.Equal(t, 1, story.Version)
	assert.Equal(t, 6, story.TotalWords)
}

func TestAggregateRestartsOnceWhenApprovedSetChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.addInterview(t, time.Now(), models.InterviewLifeEvents)
	f.addDraft(t, models.DraftApproved, "The year the bridge opened.", iv.ID)
	extra := f.addDraft(t, models.DraftReviewed, "The year the bridge closed.", iv.ID)

	f.stub.fn = func(sctx context.Context, merged string) (*summarizer.Result, error) {
		if f.stub.calls == 1 {
			// another admin approves a draft mid-flight
			require.NoError(t, f.drafts.UpdateDraftStage(ctx, extra.ID, 0, models.DraftApproved))
		}
		return &summarizer.Result{Summary: "bridges"}, nil
	}

	story, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, f.stub.calls, "one restart after the first mismatch")
	assert.Equal(t, 2, story.ApprovedDrafts)
	assert.Equal(t, 1, story.Version)
}

func TestAggregateFailsOnSecondMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.addInterview(t, time.Now(), models.InterviewLifeEvents)
	f.addDraft(t, models.DraftApproved, "v one", iv.ID)
	spareA := f.addDraft(t, models.DraftReviewed, "spare a", iv.ID)
	spareB := f.addDraft(t, models.DraftReviewed, "spare b", iv.ID)

	spares := []*models.Draft{spareA, spareB}
	f.stub.fn = func(sctx context.Context, merged string) (*summarizer.Result, error) {
		// the approved set changes during every attempt
		d := spares[f.stub.calls-1]
		require.NoError(t, f.drafts.UpdateDraftStage(ctx, d.ID, 0, models.DraftApproved))
		return &summarizer.Result{}, nil
	}

	_, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.ErrorIs(t, err, lifecycle.ErrConcurrentModification)

	stories, err := f.stories.GetStoryVersions(ctx, f.session.ID)
	require.NoError(t, err)
	assert.Empty(t, stories, "no partial story may be committed")
}

func TestAggregateCancellationCommitsNothing(t *testing.T) {
	f := newFixture(t)
	iv := f.addInterview(t, time.Now(), models.InterviewFriend)
	f.addDraft(t, models.DraftApproved, "some content", iv.ID)

	ctx, cancel := context.WithCancel(context.Background())
	f.stub.fn = func(sctx context.Context, merged string) (*summarizer.Result, error) {
		cancel() // caller gives up while the external call runs
		return &summarizer.Result{Summary: "late"}, nil
	}

	_, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.ErrorIs(t, err, context.Canceled)

	stories, err := f.stories.GetStoryVersions(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Empty(t, stories)

	entries, err := f.history.GetHistory(context.Background(), f.session.ID, dao.HistoryFilter{Action: "story_generated"})
	require.NoError(t, err)
	assert.Empty(t, entries, "no history for an aborted attempt")
}

func TestAggregateAssignsDistinctVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.addInterview(t, time.Now(), models.InterviewFriend)
	f.addDraft(t, models.DraftApproved, "some content", iv.ID)

	var inner *models.FullLifeStory
	f.stub.fn = func(sctx context.Context, merged string) (*summarizer.Result, error) {
		if f.stub.calls == 1 {
			// a second requestFullStory lands while the first summarizes
			second := &stubSummarizer{}
			innerAgg := New(f.db, f.sessions, f.interviews, f.drafts, f.stories, f.history,
				second, lifecycle.FixedClock{T: time.Now()}, time.Second, "test-model")
			var err error
			inner, err = innerAgg.Aggregate(ctx, f.session.ID, "other-admin")
			if err != nil {
				return nil, err
			}
		}
		return &summarizer.Result{}, nil
	}

	outer, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.NoError(t, err)
	require.NotNil(t, inner)

	assert.Equal(t, 1, inner.Version)
	assert.Equal(t, 2, outer.Version, "never two stories with the same version")
}

func TestWeakDraftReferencesSurviveDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	iv := f.addInterview(t, time.Now(), models.InterviewFriend)
	draft := f.addDraft(t, models.DraftApproved, "kept by id only", iv.ID)

	story, err := f.agg.Aggregate(ctx, f.session.ID, "admin")
	require.NoError(t, err)

	// deleting the draft afterwards must not break the generated story
	require.NoError(t, f.db.Delete(&models.Draft{}, "id = ?", draft.ID).Error)

	got, err := f.stories.GetStoryByID(ctx, story.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []uuid.UUID{draft.ID}, got.SourceDraftIDs)
	assert.Equal(t, 1, got.ApprovedDrafts)
}
