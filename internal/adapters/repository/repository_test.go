package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/config"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

type fixture struct {
	store    *docstore.Store
	topics   ports.TopicRepository
	problems ports.ProblemRepository
	sessions ports.SessionRepository
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		DataFile:    filepath.Join(dir, "progress.json"),
		SidecarFile: filepath.Join(dir, ".state.json"),
	}

	store, err := docstore.Open(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		store:    store,
		topics:   NewTopicRepository(store),
		problems: NewProblemRepository(store),
		sessions: NewSessionRepository(store),
	}
}

func (f *fixture) addTopic(t *testing.T, name string) *entities.Topic {
	topic := &entities.Topic{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	require.NoError(t, f.topics.Create(context.Background(), topic))
	return topic
}

func (f *fixture) addProblem(t *testing.T, topicID uuid.UUID, title string, difficulty entities.Difficulty) *entities.Problem {
	now := time.Now()
	problem := &entities.Problem{
		ID:         uuid.New(),
		TopicID:    topicID,
		Title:      title,
		Difficulty: difficulty,
		Status:     entities.StatusNotStarted,
		Notes:      []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.problems.Create(context.Background(), problem))
	return problem
}

func TestTopicNameUniqueness(t *testing.T) {
	f := newFixture(t)
	f.addTopic(t, "Arrays")

	dup := &entities.Topic{ID: uuid.New(), Name: "arrays", CreatedAt: time.Now()}
	err := f.topics.Create(context.Background(), dup)
	assert.ErrorIs(t, err, entities.ErrTopicNameTaken)
}

func TestProblemRequiresTopic(t *testing.T) {
	f := newFixture(t)

	orphan := &entities.Problem{
		ID:         uuid.New(),
		TopicID:    uuid.New(),
		Title:      "Orphan",
		Difficulty: entities.DifficultyEasy,
		Status:     entities.StatusNotStarted,
	}
	err := f.problems.Create(context.Background(), orphan)
	assert.ErrorIs(t, err, entities.ErrTopicNotFound)

	// Nothing was persisted.
	count, err := f.problems.Count(context.Background(), ports.ProblemFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTopicDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	graphs := f.addTopic(t, "Graphs")
	twoSum := f.addProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)
	bfs := f.addProblem(t, graphs.ID, "BFS", entities.DifficultyMedium)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		DurationMinutes: 30,
		ProblemIDs:      []uuid.UUID{twoSum.ID, bfs.ID},
	}
	require.NoError(t, f.sessions.Log(ctx, session))

	require.NoError(t, f.topics.Delete(ctx, arrays.ID, nil))

	_, err := f.problems.GetByID(ctx, twoSum.ID)
	assert.ErrorIs(t, err, entities.ErrProblemNotFound)

	// The session survives but no longer references the deleted problem.
	got, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bfs.ID}, got.ProblemIDs)
}

func TestTopicDeleteReassigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	graphs := f.addTopic(t, "Graphs")
	twoSum := f.addProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)

	require.NoError(t, f.topics.Delete(ctx, arrays.ID, &graphs.ID))

	moved, err := f.problems.GetByID(ctx, twoSum.ID)
	require.NoError(t, err)
	assert.Equal(t, graphs.ID, moved.TopicID)
}

func TestTopicDeleteRejectsBadReassignTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	f.addProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)

	missing := uuid.New()
	err := f.topics.Delete(ctx, arrays.ID, &missing)
	assert.ErrorIs(t, err, entities.ErrTopicNotFound)

	// Self-reassignment is rejected too.
	err = f.topics.Delete(ctx, arrays.ID, &arrays.ID)
	assert.ErrorIs(t, err, entities.ErrTopicNotFound)

	// Topic and problem are untouched.
	_, err = f.topics.GetByID(ctx, arrays.ID)
	require.NoError(t, err)
	count, err := f.problems.Count(ctx, ports.ProblemFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProblemDeleteScrubsSessionRefs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	twoSum := f.addProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)
	threeSum := f.addProblem(t, arrays.ID, "Three Sum", entities.DifficultyMedium)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		DurationMinutes: 20,
		ProblemIDs:      []uuid.UUID{twoSum.ID, threeSum.ID},
	}
	require.NoError(t, f.sessions.Log(ctx, session))

	require.NoError(t, f.problems.Delete(ctx, twoSum.ID))

	got, err := f.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{threeSum.ID}, got.ProblemIDs)
}

func TestSessionRejectsUnknownProblem(t *testing.T) {
	f := newFixture(t)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		DurationMinutes: 25,
		ProblemIDs:      []uuid.UUID{uuid.New()},
	}
	err := f.sessions.Log(context.Background(), session)
	assert.ErrorIs(t, err, entities.ErrProblemNotFound)
}

func TestSessionLogSplitsTimeEvenly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	a := f.addProblem(t, arrays.ID, "A", entities.DifficultyEasy)
	b := f.addProblem(t, arrays.ID, "B", entities.DifficultyEasy)
	c := f.addProblem(t, arrays.ID, "C", entities.DifficultyEasy)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		DurationMinutes: 50,
		ProblemIDs:      []uuid.UUID{a.ID, b.ID, c.ID},
	}
	require.NoError(t, f.sessions.Log(ctx, session))

	// 50 minutes over 3 problems: 17 + 17 + 16, one attempt each.
	total := 0
	for _, id := range []uuid.UUID{a.ID, b.ID, c.ID} {
		p, err := f.problems.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Attempts)
		total += p.TimeSpentMinutes
	}
	assert.Equal(t, 50, total)

	first, err := f.problems.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 17, first.TimeSpentMinutes)
}

func TestSessionDeleteReversesAccounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	a := f.addProblem(t, arrays.ID, "A", entities.DifficultyEasy)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now(),
		DurationMinutes: 40,
		ProblemIDs:      []uuid.UUID{a.ID},
	}
	require.NoError(t, f.sessions.Log(ctx, session))

	charged, err := f.problems.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, charged.TimeSpentMinutes)
	assert.Equal(t, 1, charged.Attempts)

	require.NoError(t, f.sessions.Delete(ctx, session.ID))

	reversed, err := f.problems.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Zero(t, reversed.TimeSpentMinutes)
	assert.Zero(t, reversed.Attempts)

	_, err = f.sessions.GetByID(ctx, session.ID)
	assert.ErrorIs(t, err, entities.ErrSessionNotFound)
}

func TestRecalculateTimeRebuildsFromSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	a := f.addProblem(t, arrays.ID, "A", entities.DifficultyEasy)
	b := f.addProblem(t, arrays.ID, "B", entities.DifficultyEasy)

	require.NoError(t, f.sessions.Log(ctx, &entities.StudySession{
		ID: uuid.New(), StartedAt: time.Now(), DurationMinutes: 30, ProblemIDs: []uuid.UUID{a.ID},
	}))
	require.NoError(t, f.sessions.Log(ctx, &entities.StudySession{
		ID: uuid.New(), StartedAt: time.Now(), DurationMinutes: 20, ProblemIDs: []uuid.UUID{a.ID, b.ID},
	}))

	// Drift the counters by hand, then rebuild.
	drifted, err := f.problems.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, drifted.AddTime(999))
	require.NoError(t, f.problems.Update(ctx, drifted))

	totals, err := f.problems.RecalculateTime(ctx)
	require.NoError(t, err)

	assert.Equal(t, 40, totals[a.ID])
	assert.Equal(t, 10, totals[b.ID])

	rebuilt, err := f.problems.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, rebuilt.TimeSpentMinutes)
	assert.Equal(t, 2, rebuilt.Attempts)
}

func TestProblemListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	arrays := f.addTopic(t, "Arrays")
	graphs := f.addTopic(t, "Graphs")
	f.addProblem(t, arrays.ID, "Two Sum", entities.DifficultyEasy)
	f.addProblem(t, arrays.ID, "Three Sum", entities.DifficultyMedium)
	f.addProblem(t, graphs.ID, "Dijkstra", entities.DifficultyHard)

	byTopic, err := f.problems.List(ctx, ports.ProblemFilter{TopicID: &arrays.ID})
	require.NoError(t, err)
	assert.Len(t, byTopic, 2)

	hard := entities.DifficultyHard
	byDifficulty, err := f.problems.List(ctx, ports.ProblemFilter{Difficulty: &hard})
	require.NoError(t, err)
	require.Len(t, byDifficulty, 1)
	assert.Equal(t, "Dijkstra", byDifficulty[0].Title)

	search := "sum"
	bySearch, err := f.problems.List(ctx, ports.ProblemFilter{Search: &search})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2)

	sorted, err := f.problems.List(ctx, ports.ProblemFilter{SortBy: "title"})
	require.NoError(t, err)
	require.Len(t, sorted, 3)
	assert.Equal(t, "Dijkstra", sorted[0].Title)

	paged, err := f.problems.List(ctx, ports.ProblemFilter{SortBy: "title", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "Three Sum", paged[0].Title)
}

func TestGetActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.GetActive(ctx)
	assert.ErrorIs(t, err, entities.ErrNoActiveSession)

	live := &entities.StudySession{ID: uuid.New(), StartedAt: time.Now()}
	require.NoError(t, f.sessions.Create(ctx, live))

	got, err := f.sessions.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
}

func TestCreateRejectsSecondActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := &entities.StudySession{ID: uuid.New(), StartedAt: time.Now()}
	require.NoError(t, f.sessions.Create(ctx, first))

	second := &entities.StudySession{ID: uuid.New(), StartedAt: time.Now()}
	err := f.sessions.Create(ctx, second)
	assert.ErrorIs(t, err, entities.ErrSessionActive)

	// Only the first session was stored.
	count, err := f.sessions.Count(ctx, ports.SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A finished session can still be inserted alongside the active one.
	ended := time.Now()
	done := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       time.Now().Add(-time.Hour),
		EndedAt:         &ended,
		DurationMinutes: 60,
	}
	require.NoError(t, f.sessions.Create(ctx, done))
}

func TestSplitDuration(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	shares := splitDuration(10, []uuid.UUID{a, b, c})
	assert.Equal(t, 4, shares[a])
	assert.Equal(t, 3, shares[b])
	assert.Equal(t, 3, shares[c])

	assert.Empty(t, splitDuration(10, nil))
	assert.Empty(t, splitDuration(0, []uuid.UUID{a}))
}
