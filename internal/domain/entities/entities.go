package entities

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTopicNotFound     = errors.New("topic not found")
	ErrTopicNameTaken    = errors.New("topic name already in use")
	ErrProblemNotFound   = errors.New("problem not found")
	ErrProblemTitleTaken = errors.New("problem title already in use")
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrNegativeDuration  = errors.New("duration cannot be negative")
	ErrSessionActive     = errors.New("a session is already active")
	ErrNoActiveSession   = errors.New("no active session")
)

// Enums and types
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Status string

const (
	StatusNotStarted  Status = "not_started"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusNeedsReview Status = "needs_review"
)

// Topic groups problems into a study category
type Topic struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Problem represents a single coding-interview problem
type Problem struct {
	ID                  uuid.UUID  `json:"id"`
	TopicID             uuid.UUID  `json:"topic_id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	URL                 string     `json:"url"`
	Difficulty          Difficulty `json:"difficulty"`
	Status              Status     `json:"status"`
	Notes               []string   `json:"notes"`
	Attempts            int        `json:"attempts"`
	TimeSpentMinutes    int        `json:"time_spent_minutes"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	CompletedAt         *time.Time `json:"completed_at"`
	RotationCompletedAt *time.Time `json:"rotation_completed_at"`
}

// StudySession represents a timed study interval, optionally tied to problems
type StudySession struct {
	ID              uuid.UUID   `json:"id"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         *time.Time  `json:"ended_at"`
	DurationMinutes int         `json:"duration_minutes"`
	Notes           string      `json:"notes"`
	ProblemIDs      []uuid.UUID `json:"problem_ids"`
}

// Progress holds derived aggregate statistics. It is computed on demand and
// never persisted.
type Progress struct {
	TotalProblems     int                `json:"total_problems"`
	CompletedProblems int                `json:"completed_problems"`
	CompletionRate    float64            `json:"completion_rate"`
	ByStatus          map[Status]int     `json:"by_status"`
	ByDifficulty      map[Difficulty]int `json:"by_difficulty"`
	TotalStudyMinutes int                `json:"total_study_minutes"`
	TotalSessions     int                `json:"total_sessions"`
	TopicsCount       int                `json:"topics_count"`
}

// TopicProgress holds per-topic completion statistics
type TopicProgress struct {
	TopicID           uuid.UUID `json:"topic_id"`
	TopicName         string    `json:"topic_name"`
	TotalProblems     int       `json:"total_problems"`
	CompletedProblems int       `json:"completed_problems"`
	CompletionRate    float64   `json:"completion_rate"`
}

// DifficultyProgress holds completion statistics for one difficulty level
type DifficultyProgress struct {
	Difficulty Difficulty `json:"difficulty"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Rate       float64    `json:"rate"`
}

// RotationStats summarizes rotation review state over completed problems
type RotationStats struct {
	TotalCompleted int `json:"total_completed"`
	TotalReviewed  int `json:"total_reviewed"`
	PendingReview  int `json:"pending_review"`
}

// Business logic methods for Problem
func (p *Problem) MarkCompleted() {
	now := time.Now()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
}

func (p *Problem) SetStatus(status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	if status == StatusCompleted {
		p.MarkCompleted()
		return nil
	}
	p.Status = status
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Problem) IsCompleted() bool {
	return p.Status == StatusCompleted
}

// AddNote appends a timestamped free-text note.
func (p *Problem) AddNote(note string) {
	now := time.Now()
	p.Notes = append(p.Notes, fmt.Sprintf("%s - %s", now.Format("2006-01-02 15:04"), note))
	p.UpdatedAt = now
}

func (p *Problem) AddTime(minutes int) error {
	if minutes < 0 {
		return ErrNegativeDuration
	}
	p.TimeSpentMinutes += minutes
	p.UpdatedAt = time.Now()
	return nil
}

func (p *Problem) IncrementAttempts() {
	p.Attempts++
	p.UpdatedAt = time.Now()
}

// MarkRotationReviewed records the problem as reviewed in the current
// rotation round.
func (p *Problem) MarkRotationReviewed() {
	now := time.Now()
	p.RotationCompletedAt = &now
	p.UpdatedAt = now
}

// Business logic methods for StudySession
func (s *StudySession) IsActive() bool {
	return s.EndedAt == nil && s.DurationMinutes == 0
}

// Stop closes an active session and fixes its duration from wall time.
func (s *StudySession) Stop() error {
	if !s.IsActive() {
		return ErrNoActiveSession
	}
	now := time.Now()
	s.EndedAt = &now
	s.DurationMinutes = int(now.Sub(s.StartedAt).Minutes())
	if s.DurationMinutes < 0 {
		s.DurationMinutes = 0
	}
	return nil
}

func (s *StudySession) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// References reports whether the session is tied to the given problem.
func (s *StudySession) References(problemID uuid.UUID) bool {
	for _, id := range s.ProblemIDs {
		if id == problemID {
			return true
		}
	}
	return false
}

// RemoveReference drops the given problem from the session's worked list.
func (s *StudySession) RemoveReference(problemID uuid.UUID) {
	kept := s.ProblemIDs[:0]
	for _, id := range s.ProblemIDs {
		if id != problemID {
			kept = append(kept, id)
		}
	}
	s.ProblemIDs = kept
}

// Utility methods
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

func (st Status) IsValid() bool {
	switch st {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusNeedsReview:
		return true
	default:
		return false
	}
}

// AllDifficulties returns every difficulty level in display order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// AllStatuses returns every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusNotStarted, StatusInProgress, StatusCompleted, StatusNeedsReview}
}
