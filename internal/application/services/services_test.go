package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preptrack/core/internal/adapters/repository"
	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/config"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

type env struct {
	topics   *TopicService
	problems *ProblemService
	sessions *SessionService
	progress *ProgressService
}

func newEnv(t *testing.T) *env {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		DataFile:    filepath.Join(dir, "progress.json"),
		SidecarFile: filepath.Join(dir, ".state.json"),
	}

	store, err := docstore.Open(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	topicRepo := repository.NewTopicRepository(store)
	problemRepo := repository.NewProblemRepository(store)
	sessionRepo := repository.NewSessionRepository(store)
	quiet := logger.NewNop()

	return &env{
		topics:   NewTopicService(topicRepo, problemRepo, quiet),
		problems: NewProblemService(problemRepo, topicRepo, quiet),
		sessions: NewSessionService(sessionRepo, quiet),
		progress: NewProgressService(topicRepo, problemRepo, sessionRepo, quiet),
	}
}

func (e *env) createProblem(t *testing.T, topicID uuid.UUID, title string, difficulty entities.Difficulty) *entities.Problem {
	problem, err := e.problems.CreateProblem(context.Background(), ports.CreateProblemRequest{
		TopicID:    topicID,
		Title:      title,
		Difficulty: difficulty,
	})
	require.NoError(t, err)
	return problem
}

func TestCompleteProblemShowsInProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	problem := e.createProblem(t, topic.ID, "Two Sum", entities.DifficultyEasy)
	assert.Equal(t, entities.StatusNotStarted, problem.Status)

	_, err = e.problems.SetProblemStatus(ctx, problem.ID, entities.StatusCompleted)
	require.NoError(t, err)

	_, err = e.sessions.LogSession(ctx, ports.LogSessionRequest{
		DurationMinutes: 15,
		ProblemIDs:      []uuid.UUID{problem.ID},
	})
	require.NoError(t, err)

	progress, err := e.progress.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.TotalProblems)
	assert.Equal(t, 1, progress.CompletedProblems)
	assert.Equal(t, 100.0, progress.CompletionRate)
	assert.Equal(t, 15, progress.TotalStudyMinutes)
	assert.Equal(t, 1, progress.TotalSessions)
	assert.Equal(t, 1, progress.TopicsCount)

	charged, err := e.problems.GetProblem(ctx, problem.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, charged.TimeSpentMinutes)
	assert.Equal(t, 1, charged.Attempts)
}

func TestProgressBucketsSumToTotal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Mixed"})
	require.NoError(t, err)

	a := e.createProblem(t, topic.ID, "A", entities.DifficultyEasy)
	b := e.createProblem(t, topic.ID, "B", entities.DifficultyMedium)
	e.createProblem(t, topic.ID, "C", entities.DifficultyHard)

	_, err = e.problems.SetProblemStatus(ctx, a.ID, entities.StatusCompleted)
	require.NoError(t, err)
	_, err = e.problems.SetProblemStatus(ctx, b.ID, entities.StatusNeedsReview)
	require.NoError(t, err)

	progress, err := e.progress.Overview(ctx)
	require.NoError(t, err)

	statusSum := 0
	for _, n := range progress.ByStatus {
		statusSum += n
	}
	assert.Equal(t, progress.TotalProblems, statusSum)

	difficultySum := 0
	for _, n := range progress.ByDifficulty {
		difficultySum += n
	}
	assert.Equal(t, progress.TotalProblems, difficultySum)
}

func TestCreateProblemRejectsUnknownTopic(t *testing.T) {
	e := newEnv(t)

	_, err := e.problems.CreateProblem(context.Background(), ports.CreateProblemRequest{
		TopicID:    uuid.New(),
		Title:      "Nowhere",
		Difficulty: entities.DifficultyEasy,
	})
	assert.ErrorIs(t, err, entities.ErrTopicNotFound)
}

func TestCreateProblemRejectsInvalidDifficulty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	_, err = e.problems.CreateProblem(ctx, ports.CreateProblemRequest{
		TopicID:    topic.ID,
		Title:      "Bad",
		Difficulty: entities.Difficulty("brutal"),
	})
	assert.ErrorIs(t, err, entities.ErrInvalidDifficulty)
}

func TestCreateTopicRejectsDuplicateName(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	_, err = e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "arrays"})
	assert.ErrorIs(t, err, entities.ErrTopicNameTaken)
}

func TestProblemTitleMustBeUnique(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	twoSum := e.createProblem(t, topic.ID, "Two Sum", entities.DifficultyEasy)
	threeSum := e.createProblem(t, topic.ID, "Three Sum", entities.DifficultyMedium)

	_, err = e.problems.CreateProblem(ctx, ports.CreateProblemRequest{
		TopicID:    topic.ID,
		Title:      "two sum",
		Difficulty: entities.DifficultyEasy,
	})
	assert.ErrorIs(t, err, entities.ErrProblemTitleTaken)

	// Renaming onto another problem's title is rejected too.
	title := "Two Sum"
	_, err = e.problems.UpdateProblem(ctx, threeSum.ID, ports.UpdateProblemRequest{Title: &title})
	assert.ErrorIs(t, err, entities.ErrProblemTitleTaken)

	// A problem may keep its own title through an update.
	_, err = e.problems.UpdateProblem(ctx, twoSum.ID, ports.UpdateProblemRequest{Title: &title})
	assert.NoError(t, err)
}

func TestRotationLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Nothing completed yet.
	_, err := e.problems.NextRotationProblem(ctx)
	assert.ErrorIs(t, err, entities.ErrProblemNotFound)

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	a := e.createProblem(t, topic.ID, "A", entities.DifficultyEasy)
	b := e.createProblem(t, topic.ID, "B", entities.DifficultyEasy)
	_, err = e.problems.SetProblemStatus(ctx, a.ID, entities.StatusCompleted)
	require.NoError(t, err)

	// Only completed problems rotate.
	next, err := e.problems.NextRotationProblem(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, next.ID)

	_, err = e.problems.MarkRotationReviewed(ctx, b.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidStatus)

	_, err = e.problems.MarkRotationReviewed(ctx, a.ID)
	require.NoError(t, err)

	stats, err := e.progress.RotationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCompleted)
	assert.Equal(t, 1, stats.TotalReviewed)
	assert.Zero(t, stats.PendingReview)

	// With every completed problem reviewed, a new round starts over the
	// full set.
	next, err = e.problems.NextRotationProblem(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, next.ID)
}

func TestRotationPrefersUnreviewed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	a := e.createProblem(t, topic.ID, "A", entities.DifficultyEasy)
	b := e.createProblem(t, topic.ID, "B", entities.DifficultyEasy)
	_, err = e.problems.SetProblemStatus(ctx, a.ID, entities.StatusCompleted)
	require.NoError(t, err)
	_, err = e.problems.SetProblemStatus(ctx, b.ID, entities.StatusCompleted)
	require.NoError(t, err)

	_, err = e.problems.MarkRotationReviewed(ctx, a.ID)
	require.NoError(t, err)

	// B has not been reviewed this round, so it always comes next.
	for i := 0; i < 5; i++ {
		next, err := e.problems.NextRotationProblem(ctx)
		require.NoError(t, err)
		assert.Equal(t, b.ID, next.ID)
	}
}

func TestStartStopSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.sessions.StopSession(ctx)
	assert.ErrorIs(t, err, entities.ErrNoActiveSession)

	started, err := e.sessions.StartSession(ctx, "morning grind", nil)
	require.NoError(t, err)
	assert.True(t, started.IsActive())

	_, err = e.sessions.StartSession(ctx, "second", nil)
	assert.ErrorIs(t, err, entities.ErrSessionActive)

	active, err := e.sessions.GetActiveSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, active.ID)

	stopped, err := e.sessions.StopSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, stopped.ID)
	assert.False(t, stopped.IsActive())
	require.NotNil(t, stopped.EndedAt)

	_, err = e.sessions.GetActiveSession(ctx)
	assert.ErrorIs(t, err, entities.ErrNoActiveSession)
}

func TestLogSessionDefaultsStartTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	session, err := e.sessions.LogSession(ctx, ports.LogSessionRequest{DurationMinutes: 30})
	require.NoError(t, err)

	require.NotNil(t, session.EndedAt)
	assert.WithinDuration(t, time.Now(), *session.EndedAt, 2*time.Second)
	assert.WithinDuration(t, time.Now().Add(-30*time.Minute), session.StartedAt, 2*time.Second)
}

func TestDeleteSessionRestoresProblemCounters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)
	problem := e.createProblem(t, topic.ID, "Two Sum", entities.DifficultyEasy)

	session, err := e.sessions.LogSession(ctx, ports.LogSessionRequest{
		DurationMinutes: 45,
		ProblemIDs:      []uuid.UUID{problem.ID},
	})
	require.NoError(t, err)

	require.NoError(t, e.sessions.DeleteSession(ctx, session.ID))

	restored, err := e.problems.GetProblem(ctx, problem.ID)
	require.NoError(t, err)
	assert.Zero(t, restored.TimeSpentMinutes)
	assert.Zero(t, restored.Attempts)
}

func TestAttemptsDistribution(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	e.createProblem(t, topic.ID, "Fresh", entities.DifficultyEasy)
	once := e.createProblem(t, topic.ID, "Once", entities.DifficultyEasy)

	_, err = e.problems.IncrementProblemAttempts(ctx, once.ID)
	require.NoError(t, err)

	dist, err := e.progress.AttemptsDistribution(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, dist.TotalProblems)
	assert.Equal(t, 1, dist.NotAttempted)
	assert.Equal(t, 1, dist.OneAttempt)
	assert.Zero(t, dist.TwoAttempts)
	assert.Zero(t, dist.ThreePlus)
}

func TestTimeDistributionByTopic(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	arrays, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)
	graphs, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Graphs"})
	require.NoError(t, err)

	twoSum := e.createProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)
	bfs := e.createProblem(t, graphs.ID, "BFS", entities.DifficultyMedium)

	_, err = e.problems.AddProblemTime(ctx, twoSum.ID, 10)
	require.NoError(t, err)
	_, err = e.problems.AddProblemTime(ctx, bfs.ID, 30)
	require.NoError(t, err)

	entries, err := e.progress.TimeDistribution(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Graphs", entries[0].TopicName)
	assert.Equal(t, 30, entries[0].Minutes)
	assert.Equal(t, "Arrays", entries[1].TopicName)
	assert.Equal(t, 10, entries[1].Minutes)
}

func TestRecommendationsFlagWeakAreas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Dynamic Programming"})
	require.NoError(t, err)
	e.createProblem(t, topic.ID, "Knapsack", entities.DifficultyHard)
	e.createProblem(t, topic.ID, "LIS", entities.DifficultyHard)

	recs, err := e.progress.Recommendations(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, recs)

	joined := ""
	for _, r := range recs {
		joined += r + "\n"
	}
	assert.Contains(t, joined, "hard")
	assert.Contains(t, joined, "Dynamic Programming")
}

func TestRecommendationsFlagOneDifficultyAtATime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Mixed"})
	require.NoError(t, err)
	e.createProblem(t, topic.ID, "Warmup", entities.DifficultyEasy)
	e.createProblem(t, topic.ID, "Knapsack", entities.DifficultyHard)

	recs, err := e.progress.Recommendations(ctx)
	require.NoError(t, err)

	// Easy and hard are both below target, but only the easiest level is
	// flagged.
	var focus []string
	for _, r := range recs {
		if strings.HasPrefix(r, "Focus on") {
			focus = append(focus, r)
		}
	}
	require.Len(t, focus, 1)
	assert.Contains(t, focus[0], "easy")
}

func TestWeeklyProgressCountsNewAndCompletedProblems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)

	first := e.createProblem(t, topic.ID, "Two Sum", entities.DifficultyEasy)
	e.createProblem(t, topic.ID, "Three Sum", entities.DifficultyMedium)

	_, err = e.problems.SetProblemStatus(ctx, first.ID, entities.StatusCompleted)
	require.NoError(t, err)

	weekly, err := e.progress.WeeklyProgress(ctx, 4)
	require.NoError(t, err)
	require.Len(t, weekly.Weeks, 4)

	// Both problems were added this week; one was completed.
	last := len(weekly.Weeks) - 1
	assert.Equal(t, 2, weekly.Attempted[last])
	assert.Equal(t, 1, weekly.Completed[last])
	for i := 0; i < last; i++ {
		assert.Zero(t, weekly.Attempted[i])
		assert.Zero(t, weekly.Completed[i])
	}
}

func TestRecalculateTimeService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	topic, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)
	problem := e.createProblem(t, topic.ID, "Two Sum", entities.DifficultyEasy)

	_, err = e.problems.AddProblemTime(ctx, problem.ID, 500)
	require.NoError(t, err)
	_, err = e.sessions.LogSession(ctx, ports.LogSessionRequest{
		DurationMinutes: 25,
		ProblemIDs:      []uuid.UUID{problem.ID},
	})
	require.NoError(t, err)

	totals, err := e.problems.RecalculateTimeFromSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, totals[problem.ID])

	rebuilt, err := e.problems.GetProblem(ctx, problem.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, rebuilt.TimeSpentMinutes)
}

func TestDeleteTopicThroughService(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	arrays, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Arrays"})
	require.NoError(t, err)
	graphs, err := e.topics.CreateTopic(ctx, ports.CreateTopicRequest{Name: "Graphs"})
	require.NoError(t, err)
	problem := e.createProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)

	require.NoError(t, e.topics.DeleteTopic(ctx, arrays.ID, ports.DeleteTopicRequest{ReassignTo: &graphs.ID}))

	moved, err := e.problems.GetProblem(ctx, problem.ID)
	require.NoError(t, err)
	assert.Equal(t, graphs.ID, moved.TopicID)

	_, err = e.topics.GetTopic(ctx, arrays.ID)
	assert.ErrorIs(t, err, entities.ErrTopicNotFound)
}
