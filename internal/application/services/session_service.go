package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// SessionService handles study session operations
type SessionService struct {
	sessionRepo ports.SessionRepository
	logger      *logger.Logger
}

// NewSessionService creates a new session service
func NewSessionService(sessionRepo ports.SessionRepository, logger *logger.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// LogSession records an already finished study session and charges its time
// to the referenced problems.
func (s *SessionService) LogSession(ctx context.Context, req ports.LogSessionRequest) (*entities.StudySession, error) {
	if req.DurationMinutes <= 0 {
		return nil, entities.ErrNegativeDuration
	}

	startedAt := time.Now().Add(-time.Duration(req.DurationMinutes) * time.Minute)
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}
	endedAt := startedAt.Add(time.Duration(req.DurationMinutes) * time.Minute)

	session := &entities.StudySession{
		ID:              uuid.New(),
		StartedAt:       startedAt,
		EndedAt:         &endedAt,
		DurationMinutes: req.DurationMinutes,
		Notes:           req.Notes,
		ProblemIDs:      req.ProblemIDs,
	}
	if session.ProblemIDs == nil {
		session.ProblemIDs = []uuid.UUID{}
	}

	if err := s.sessionRepo.Log(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to log session: %w", err)
	}

	s.logger.Info("Session logged",
		"session_id", session.ID, "duration_minutes", session.DurationMinutes, "problems", len(session.ProblemIDs))

	return session, nil
}

// GetSession retrieves a session by ID
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*entities.StudySession, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	return session, nil
}

// DeleteSession removes a session and reverses the time and attempt
// bookkeeping it applied.
func (s *SessionService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.sessionRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", "session_id", id)

	return nil
}

// ListSessions retrieves sessions with filtering and pagination
func (s *SessionService) ListSessions(ctx context.Context, filter ports.SessionFilter) ([]*entities.StudySession, int, error) {
	sessions, err := s.sessionRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	total, err := s.sessionRepo.Count(ctx, ports.SessionFilter{
		ProblemID: filter.ProblemID,
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return sessions, total, nil
}

// StartSession opens a live session. Only one session may be active at a time.
func (s *SessionService) StartSession(ctx context.Context, notes string, problemIDs []uuid.UUID) (*entities.StudySession, error) {
	if _, err := s.sessionRepo.GetActive(ctx); err == nil {
		return nil, entities.ErrSessionActive
	} else if !errors.Is(err, entities.ErrNoActiveSession) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	if problemIDs == nil {
		problemIDs = []uuid.UUID{}
	}
	session := &entities.StudySession{
		ID:         uuid.New(),
		StartedAt:  time.Now(),
		Notes:      notes,
		ProblemIDs: problemIDs,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.logger.Info("Session started", "session_id", session.ID, "problems", len(session.ProblemIDs))

	return session, nil
}

// StopSession closes the active session, fixing its duration from wall time
// and charging it to the referenced problems.
func (s *SessionService) StopSession(ctx context.Context) (*entities.StudySession, error) {
	session, err := s.sessionRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if err := session.Stop(); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Finish(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to stop session: %w", err)
	}

	s.logger.Info("Session stopped",
		"session_id", session.ID, "duration_minutes", session.DurationMinutes)

	return session, nil
}

// GetActiveSession returns the live session, if any
func (s *SessionService) GetActiveSession(ctx context.Context) (*entities.StudySession, error) {
	return s.sessionRepo.GetActive(ctx)
}
