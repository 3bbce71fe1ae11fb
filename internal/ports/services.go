package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
)

// TopicService interface for topic management operations
type TopicService interface {
	CreateTopic(ctx context.Context, req CreateTopicRequest) (*entities.Topic, error)
	GetTopic(ctx context.Context, id uuid.UUID) (*entities.Topic, error)
	UpdateTopic(ctx context.Context, id uuid.UUID, req UpdateTopicRequest) (*entities.Topic, error)
	DeleteTopic(ctx context.Context, id uuid.UUID, req DeleteTopicRequest) error
	ListTopics(ctx context.Context, filter TopicFilter) ([]*entities.Topic, int, error)
}

// ProblemService interface for problem management operations
type ProblemService interface {
	CreateProblem(ctx context.Context, req CreateProblemRequest) (*entities.Problem, error)
	GetProblem(ctx context.Context, id uuid.UUID) (*entities.Problem, error)
	UpdateProblem(ctx context.Context, id uuid.UUID, req UpdateProblemRequest) (*entities.Problem, error)
	DeleteProblem(ctx context.Context, id uuid.UUID) error
	ListProblems(ctx context.Context, filter ProblemFilter) ([]*entities.Problem, int, error)
	SetProblemStatus(ctx context.Context, id uuid.UUID, status entities.Status) (*entities.Problem, error)
	AddProblemNote(ctx context.Context, id uuid.UUID, note string) (*entities.Problem, error)
	AddProblemTime(ctx context.Context, id uuid.UUID, minutes int) (*entities.Problem, error)
	IncrementProblemAttempts(ctx context.Context, id uuid.UUID) (*entities.Problem, error)
	NextRotationProblem(ctx context.Context) (*entities.Problem, error)
	MarkRotationReviewed(ctx context.Context, id uuid.UUID) (*entities.Problem, error)
	RecalculateTimeFromSessions(ctx context.Context) (map[uuid.UUID]int, error)
}

// SessionService interface for study session operations
type SessionService interface {
	LogSession(ctx context.Context, req LogSessionRequest) (*entities.StudySession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*entities.StudySession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	ListSessions(ctx context.Context, filter SessionFilter) ([]*entities.StudySession, int, error)
	StartSession(ctx context.Context, notes string, problemIDs []uuid.UUID) (*entities.StudySession, error)
	StopSession(ctx context.Context) (*entities.StudySession, error)
	GetActiveSession(ctx context.Context) (*entities.StudySession, error)
}

// ProgressService interface for derived statistics. None of these mutate
// stored data.
type ProgressService interface {
	Overview(ctx context.Context) (*entities.Progress, error)
	TopicStats(ctx context.Context) ([]entities.TopicProgress, error)
	DifficultyStats(ctx context.Context) ([]entities.DifficultyProgress, error)
	WeeklyProgress(ctx context.Context, weeks int) (*WeeklyProgress, error)
	TimeDistribution(ctx context.Context) ([]TimeDistributionEntry, error)
	AttemptsDistribution(ctx context.Context) (*AttemptsDistribution, error)
	ProductivityInsights(ctx context.Context) (*ProductivityInsights, error)
	Recommendations(ctx context.Context) ([]string, error)
	RotationStats(ctx context.Context) (*entities.RotationStats, error)
}

// Request/Response Types

// Topic related types
type CreateTopicRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

type UpdateTopicRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

type DeleteTopicRequest struct {
	// ReassignTo moves the topic's problems instead of deleting them.
	ReassignTo *uuid.UUID `json:"reassign_to"`
}

// Problem related types
type CreateProblemRequest struct {
	TopicID     uuid.UUID           `json:"topic_id" validate:"required"`
	Title       string              `json:"title" validate:"required,min=1,max=500"`
	Description string              `json:"description" validate:"omitempty,max=5000"`
	URL         string              `json:"url" validate:"omitempty,url,max=2000"`
	Difficulty  entities.Difficulty `json:"difficulty" validate:"required"`
}

type UpdateProblemRequest struct {
	TopicID     *uuid.UUID           `json:"topic_id"`
	Title       *string              `json:"title" validate:"omitempty,min=1,max=500"`
	Description *string              `json:"description" validate:"omitempty,max=5000"`
	URL         *string              `json:"url" validate:"omitempty,url,max=2000"`
	Difficulty  *entities.Difficulty `json:"difficulty" validate:"omitempty"`
}

type SetStatusRequest struct {
	Status entities.Status `json:"status" validate:"required"`
}

type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=5000"`
}

type AddTimeRequest struct {
	Minutes int `json:"minutes" validate:"required,min=1"`
}

// Session related types
type LogSessionRequest struct {
	DurationMinutes int         `json:"duration_minutes" validate:"required,min=1"`
	Notes           string      `json:"notes" validate:"omitempty,max=5000"`
	ProblemIDs      []uuid.UUID `json:"problem_ids"`
	StartedAt       *time.Time  `json:"started_at"`
}

type StartSessionRequest struct {
	Notes      string      `json:"notes" validate:"omitempty,max=5000"`
	ProblemIDs []uuid.UUID `json:"problem_ids"`
}

// Database related types
type SwitchDatabaseRequest struct {
	Path string `json:"path" validate:"required,min=1"`
}

type DatabaseInfoResponse struct {
	Path string `json:"path"`
}

// Analytics types
type WeeklyProgress struct {
	Weeks     []string `json:"weeks"`
	Completed []int    `json:"completed"`
	Attempted []int    `json:"attempted"`
}

type TimeDistributionEntry struct {
	TopicID   uuid.UUID `json:"topic_id"`
	TopicName string    `json:"topic_name"`
	Minutes   int       `json:"minutes"`
}

type AttemptsDistribution struct {
	NotAttempted  int `json:"not_attempted"`
	OneAttempt    int `json:"one_attempt"`
	TwoAttempts   int `json:"two_attempts"`
	ThreePlus     int `json:"three_plus"`
	TotalProblems int `json:"total_problems"`
}

type ProductivityInsights struct {
	TotalStudyMinutes     int        `json:"total_study_minutes"`
	TotalSessions         int        `json:"total_sessions"`
	AverageSessionMinutes float64    `json:"average_session_minutes"`
	ProblemsPerHour       float64    `json:"problems_per_hour"`
	BestSessionDate       *time.Time `json:"best_session_date"`
	BestSessionProblems   int        `json:"best_session_problems"`
	BestSessionMinutes    int        `json:"best_session_minutes"`
}

// Response types for pagination and common structures
type PaginatedResponse[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
