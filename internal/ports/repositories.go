package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
)

// TopicRepository defines the interface for topic data operations
type TopicRepository interface {
	Create(ctx context.Context, topic *entities.Topic) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Topic, error)
	GetByName(ctx context.Context, name string) (*entities.Topic, error)
	Update(ctx context.Context, topic *entities.Topic) error
	// Delete removes the topic. When reassignTo is nil its problems are
	// deleted and scrubbed from session references; otherwise they move to
	// the given topic. Either way the whole change is one atomic write.
	Delete(ctx context.Context, id uuid.UUID, reassignTo *uuid.UUID) error
	List(ctx context.Context, filter TopicFilter) ([]*entities.Topic, error)
	Count(ctx context.Context) (int, error)
}

// ProblemRepository defines the interface for problem data operations
type ProblemRepository interface {
	Create(ctx context.Context, problem *entities.Problem) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Problem, error)
	GetByTitle(ctx context.Context, title string) (*entities.Problem, error)
	Update(ctx context.Context, problem *entities.Problem) error
	// Delete removes the problem and scrubs its ID from every session's
	// worked list in the same write.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ProblemFilter) ([]*entities.Problem, error)
	Count(ctx context.Context, filter ProblemFilter) (int, error)
	GetTopicProblems(ctx context.Context, topicID uuid.UUID) ([]*entities.Problem, error)
	// RecalculateTime resets every problem's accumulated time and attempts
	// and rebuilds both from the recorded sessions, splitting each session's
	// duration evenly across the problems it references. Returns the new
	// per-problem minute totals.
	RecalculateTime(ctx context.Context) (map[uuid.UUID]int, error)
}

// SessionRepository defines the interface for study session data operations
type SessionRepository interface {
	// Create inserts a session as-is. An active session (no end time yet) is
	// rejected when another active session already exists, inside the same
	// write that would insert it.
	Create(ctx context.Context, session *entities.StudySession) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.StudySession, error)
	// Log inserts a finished session and, in the same write, splits its
	// duration across the referenced problems and bumps their attempt
	// counters.
	Log(ctx context.Context, session *entities.StudySession) error
	// Finish replaces a stored active session with its completed form and
	// applies the same accounting as Log in one write.
	Finish(ctx context.Context, session *entities.StudySession) error
	// Delete removes the session and reverses the time/attempt bookkeeping
	// Log applied.
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter SessionFilter) ([]*entities.StudySession, error)
	Count(ctx context.Context, filter SessionFilter) (int, error)
	GetActive(ctx context.Context) (*entities.StudySession, error)
}

// Filter types for repository queries
type TopicFilter struct {
	Search    *string
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

type ProblemFilter struct {
	TopicID    *uuid.UUID
	Status     *entities.Status
	Difficulty *entities.Difficulty
	Search     *string
	Limit      int
	Offset     int
	SortBy     string
	SortOrder  string
}

type SessionFilter struct {
	ProblemID *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}
