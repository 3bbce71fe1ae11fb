package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/ports"
)

// SessionRepositoryImpl implements the SessionRepository interface
type SessionRepositoryImpl struct {
	store *docstore.Store
}

// NewSessionRepository creates a new study session repository
func NewSessionRepository(store *docstore.Store) ports.SessionRepository {
	return &SessionRepositoryImpl{store: store}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entities.StudySession) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		if err := verifyReferences(doc, session.ProblemIDs); err != nil {
			return err
		}
		if session.IsActive() {
			for i := range doc.Sessions {
				if doc.Sessions[i].IsActive() {
					return entities.ErrSessionActive
				}
			}
		}
		doc.Sessions = append(doc.Sessions, *session)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.StudySession, error) {
	var found *entities.StudySession
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Sessions {
			if doc.Sessions[i].ID == id {
				s := doc.Sessions[i]
				found = &s
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrSessionNotFound
	}
	return found, nil
}

func (r *SessionRepositoryImpl) Log(ctx context.Context, session *entities.StudySession) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		if err := verifyReferences(doc, session.ProblemIDs); err != nil {
			return err
		}

		doc.Sessions = append(doc.Sessions, *session)

		shares := splitDuration(session.DurationMinutes, session.ProblemIDs)
		now := time.Now()
		for i := range doc.Problems {
			p := &doc.Problems[i]
			if share, ok := shares[p.ID]; ok {
				p.TimeSpentMinutes += share
				p.Attempts++
				p.UpdatedAt = now
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("log session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) Finish(ctx context.Context, session *entities.StudySession) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		if err := verifyReferences(doc, session.ProblemIDs); err != nil {
			return err
		}

		idx := -1
		for i := range doc.Sessions {
			if doc.Sessions[i].ID == session.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return entities.ErrSessionNotFound
		}
		doc.Sessions[idx] = *session

		shares := splitDuration(session.DurationMinutes, session.ProblemIDs)
		now := time.Now()
		for i := range doc.Problems {
			p := &doc.Problems[i]
			if share, ok := shares[p.ID]; ok {
				p.TimeSpentMinutes += share
				p.Attempts++
				p.UpdatedAt = now
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		idx := -1
		for i := range doc.Sessions {
			if doc.Sessions[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return entities.ErrSessionNotFound
		}

		// Reverse the accounting Log applied before dropping the session.
		session := doc.Sessions[idx]
		shares := splitDuration(session.DurationMinutes, session.ProblemIDs)
		now := time.Now()
		for i := range doc.Problems {
			p := &doc.Problems[i]
			if share, ok := shares[p.ID]; ok {
				p.TimeSpentMinutes -= share
				if p.TimeSpentMinutes < 0 {
					p.TimeSpentMinutes = 0
				}
				if p.Attempts > 0 {
					p.Attempts--
				}
				p.UpdatedAt = now
			}
		}

		doc.Sessions = append(doc.Sessions[:idx], doc.Sessions[idx+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (r *SessionRepositoryImpl) List(ctx context.Context, filter ports.SessionFilter) ([]*entities.StudySession, error) {
	sessions := r.collect(filter)

	less := func(i, j int) bool { return sessions[i].StartedAt.Before(sessions[j].StartedAt) }
	if filter.SortBy == "duration" {
		less = func(i, j int) bool { return sessions[i].DurationMinutes < sessions[j].DurationMinutes }
	}
	sortStable(len(sessions), filter.SortOrder,
		func(i, j int) { sessions[i], sessions[j] = sessions[j], sessions[i] }, less)

	lo, hi := window(len(sessions), filter.Limit, filter.Offset)
	result := make([]*entities.StudySession, 0, hi-lo)
	for i := lo; i < hi; i++ {
		s := sessions[i]
		result = append(result, &s)
	}
	return result, nil
}

func (r *SessionRepositoryImpl) Count(ctx context.Context, filter ports.SessionFilter) (int, error) {
	return len(r.collect(filter)), nil
}

func (r *SessionRepositoryImpl) GetActive(ctx context.Context) (*entities.StudySession, error) {
	var found *entities.StudySession
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Sessions {
			if doc.Sessions[i].IsActive() {
				s := doc.Sessions[i]
				found = &s
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrNoActiveSession
	}
	return found, nil
}

func (r *SessionRepositoryImpl) collect(filter ports.SessionFilter) []entities.StudySession {
	var sessions []entities.StudySession
	r.store.View(func(doc *docstore.Document) {
		for _, s := range doc.Sessions {
			if filter.ProblemID != nil && !s.References(*filter.ProblemID) {
				continue
			}
			if filter.StartDate != nil && s.StartedAt.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && s.StartedAt.After(*filter.EndDate) {
				continue
			}
			sessions = append(sessions, s)
		}
	})
	return sessions
}

// verifyReferences checks that every referenced problem exists.
func verifyReferences(doc *docstore.Document, problemIDs []uuid.UUID) error {
	for _, pid := range problemIDs {
		found := false
		for i := range doc.Problems {
			if doc.Problems[i].ID == pid {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("session references %s: %w", pid, entities.ErrProblemNotFound)
		}
	}
	return nil
}
