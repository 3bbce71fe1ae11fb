package services

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// ProblemService handles problem management operations
type ProblemService struct {
	problemRepo ports.ProblemRepository
	topicRepo   ports.TopicRepository
	logger      *logger.Logger
}

// NewProblemService creates a new problem service
func NewProblemService(problemRepo ports.ProblemRepository, topicRepo ports.TopicRepository, logger *logger.Logger) *ProblemService {
	return &ProblemService{
		problemRepo: problemRepo,
		topicRepo:   topicRepo,
		logger:      logger,
	}
}

// CreateProblem creates a new problem under an existing topic
func (s *ProblemService) CreateProblem(ctx context.Context, req ports.CreateProblemRequest) (*entities.Problem, error) {
	if !req.Difficulty.IsValid() {
		return nil, entities.ErrInvalidDifficulty
	}

	// Verify topic exists
	if _, err := s.topicRepo.GetByID(ctx, req.TopicID); err != nil {
		return nil, fmt.Errorf("topic not found: %w", err)
	}

	if _, err := s.problemRepo.GetByTitle(ctx, req.Title); err == nil {
		return nil, entities.ErrProblemTitleTaken
	}

	now := time.Now()
	problem := &entities.Problem{
		ID:          uuid.New(),
		TopicID:     req.TopicID,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Difficulty:  req.Difficulty,
		Status:      entities.StatusNotStarted,
		Notes:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.problemRepo.Create(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}

	s.logger.Info("Problem created", "problem_id", problem.ID, "title", problem.Title, "topic_id", problem.TopicID)

	return problem, nil
}

// GetProblem retrieves a problem by ID
func (s *ProblemService) GetProblem(ctx context.Context, id uuid.UUID) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	return problem, nil
}

// UpdateProblem updates a problem's information
func (s *ProblemService) UpdateProblem(ctx context.Context, id uuid.UUID, req ports.UpdateProblemRequest) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	if req.TopicID != nil {
		if _, err := s.topicRepo.GetByID(ctx, *req.TopicID); err != nil {
			return nil, fmt.Errorf("topic not found: %w", err)
		}
		problem.TopicID = *req.TopicID
	}
	if req.Title != nil {
		if existing, err := s.problemRepo.GetByTitle(ctx, *req.Title); err == nil && existing.ID != id {
			return nil, entities.ErrProblemTitleTaken
		}
		problem.Title = *req.Title
	}
	if req.Description != nil {
		problem.Description = *req.Description
	}
	if req.URL != nil {
		problem.URL = *req.URL
	}
	if req.Difficulty != nil {
		if !req.Difficulty.IsValid() {
			return nil, entities.ErrInvalidDifficulty
		}
		problem.Difficulty = *req.Difficulty
	}
	problem.UpdatedAt = time.Now()

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to update problem: %w", err)
	}

	s.logger.Info("Problem updated", "problem_id", problem.ID)

	return problem, nil
}

// DeleteProblem deletes a problem and scrubs session references to it
func (s *ProblemService) DeleteProblem(ctx context.Context, id uuid.UUID) error {
	if _, err := s.problemRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("problem not found: %w", err)
	}

	if err := s.problemRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}

	s.logger.Info("Problem deleted", "problem_id", id)

	return nil
}

// ListProblems retrieves problems with filtering and pagination
func (s *ProblemService) ListProblems(ctx context.Context, filter ports.ProblemFilter) ([]*entities.Problem, int, error) {
	problems, err := s.problemRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list problems: %w", err)
	}

	total, err := s.problemRepo.Count(ctx, ports.ProblemFilter{
		TopicID:    filter.TopicID,
		Status:     filter.Status,
		Difficulty: filter.Difficulty,
		Search:     filter.Search,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count problems: %w", err)
	}

	return problems, total, nil
}

// SetProblemStatus changes a problem's status. Completing a problem stamps
// its completion time.
func (s *ProblemService) SetProblemStatus(ctx context.Context, id uuid.UUID, status entities.Status) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	if err := problem.SetStatus(status); err != nil {
		return nil, err
	}

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to update problem status: %w", err)
	}

	s.logger.Info("Problem status changed", "problem_id", problem.ID, "status", status)

	return problem, nil
}

// AddProblemNote appends a timestamped note to a problem
func (s *ProblemService) AddProblemNote(ctx context.Context, id uuid.UUID, note string) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	problem.AddNote(note)

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to add note: %w", err)
	}

	return problem, nil
}

// AddProblemTime adds minutes to a problem's accumulated time
func (s *ProblemService) AddProblemTime(ctx context.Context, id uuid.UUID, minutes int) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	if err := problem.AddTime(minutes); err != nil {
		return nil, err
	}

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to add time: %w", err)
	}

	s.logger.Info("Time added to problem", "problem_id", problem.ID, "minutes", minutes)

	return problem, nil
}

// IncrementProblemAttempts bumps a problem's attempt counter
func (s *ProblemService) IncrementProblemAttempts(ctx context.Context, id uuid.UUID) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	problem.IncrementAttempts()

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to increment attempts: %w", err)
	}

	return problem, nil
}

// NextRotationProblem picks a completed problem for rotation review. Problems
// not yet reviewed in the current round come first; once every completed
// problem has been reviewed a fresh round starts over the full set.
func (s *ProblemService) NextRotationProblem(ctx context.Context) (*entities.Problem, error) {
	status := entities.StatusCompleted
	completed, err := s.problemRepo.List(ctx, ports.ProblemFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed problems: %w", err)
	}
	if len(completed) == 0 {
		return nil, fmt.Errorf("no completed problems to review: %w", entities.ErrProblemNotFound)
	}

	var latest *time.Time
	for _, p := range completed {
		if p.RotationCompletedAt != nil && (latest == nil || p.RotationCompletedAt.After(*latest)) {
			latest = p.RotationCompletedAt
		}
	}

	pool := completed
	if latest != nil {
		var unreviewed []*entities.Problem
		for _, p := range completed {
			if p.RotationCompletedAt == nil || p.RotationCompletedAt.Before(*latest) {
				unreviewed = append(unreviewed, p)
			}
		}
		if len(unreviewed) > 0 {
			pool = unreviewed
		}
	}

	return pool[rand.Intn(len(pool))], nil
}

// MarkRotationReviewed records a completed problem as reviewed in rotation
func (s *ProblemService) MarkRotationReviewed(ctx context.Context, id uuid.UUID) (*entities.Problem, error) {
	problem, err := s.problemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("problem not found: %w", err)
	}

	if !problem.IsCompleted() {
		return nil, fmt.Errorf("only completed problems rotate: %w", entities.ErrInvalidStatus)
	}

	problem.MarkRotationReviewed()

	if err := s.problemRepo.Update(ctx, problem); err != nil {
		return nil, fmt.Errorf("failed to mark rotation reviewed: %w", err)
	}

	s.logger.Info("Problem reviewed in rotation", "problem_id", problem.ID)

	return problem, nil
}

// RecalculateTimeFromSessions rebuilds every problem's time and attempt
// counters from the recorded sessions
func (s *ProblemService) RecalculateTimeFromSessions(ctx context.Context) (map[uuid.UUID]int, error) {
	totals, err := s.problemRepo.RecalculateTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to recalculate time: %w", err)
	}

	s.logger.Info("Recalculated problem time from sessions", "problems_updated", len(totals))

	return totals, nil
}
