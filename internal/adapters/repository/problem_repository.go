package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/ports"
)

// ProblemRepositoryImpl implements the ProblemRepository interface
type ProblemRepositoryImpl struct {
	store *docstore.Store
}

// NewProblemRepository creates a new problem repository
func NewProblemRepository(store *docstore.Store) ports.ProblemRepository {
	return &ProblemRepositoryImpl{store: store}
}

func (r *ProblemRepositoryImpl) Create(ctx context.Context, problem *entities.Problem) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		if !topicExists(doc, problem.TopicID) {
			return entities.ErrTopicNotFound
		}
		doc.Problems = append(doc.Problems, *problem)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create problem: %w", err)
	}

	return nil
}

func (r *ProblemRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Problem, error) {
	var found *entities.Problem
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Problems {
			if doc.Problems[i].ID == id {
				p := doc.Problems[i]
				found = &p
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrProblemNotFound
	}
	return found, nil
}

func (r *ProblemRepositoryImpl) GetByTitle(ctx context.Context, title string) (*entities.Problem, error) {
	var found *entities.Problem
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Problems {
			if strings.EqualFold(doc.Problems[i].Title, title) {
				p := doc.Problems[i]
				found = &p
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrProblemNotFound
	}
	return found, nil
}

func (r *ProblemRepositoryImpl) Update(ctx context.Context, problem *entities.Problem) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		if !topicExists(doc, problem.TopicID) {
			return entities.ErrTopicNotFound
		}
		for i := range doc.Problems {
			if doc.Problems[i].ID == problem.ID {
				doc.Problems[i] = *problem
				return nil
			}
		}
		return entities.ErrProblemNotFound
	})
	if err != nil {
		return fmt.Errorf("update problem: %w", err)
	}

	return nil
}

func (r *ProblemRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		idx := -1
		for i := range doc.Problems {
			if doc.Problems[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return entities.ErrProblemNotFound
		}

		doc.Problems = append(doc.Problems[:idx], doc.Problems[idx+1:]...)
		for i := range doc.Sessions {
			doc.Sessions[i].RemoveReference(id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete problem: %w", err)
	}

	return nil
}

func (r *ProblemRepositoryImpl) List(ctx context.Context, filter ports.ProblemFilter) ([]*entities.Problem, error) {
	problems := r.collect(filter)

	less := func(i, j int) bool { return problems[i].CreatedAt.Before(problems[j].CreatedAt) }
	switch filter.SortBy {
	case "title":
		less = func(i, j int) bool { return strings.ToLower(problems[i].Title) < strings.ToLower(problems[j].Title) }
	case "updated_at":
		less = func(i, j int) bool { return problems[i].UpdatedAt.Before(problems[j].UpdatedAt) }
	case "time_spent":
		less = func(i, j int) bool { return problems[i].TimeSpentMinutes < problems[j].TimeSpentMinutes }
	}
	sortStable(len(problems), filter.SortOrder,
		func(i, j int) { problems[i], problems[j] = problems[j], problems[i] }, less)

	lo, hi := window(len(problems), filter.Limit, filter.Offset)
	result := make([]*entities.Problem, 0, hi-lo)
	for i := lo; i < hi; i++ {
		p := problems[i]
		result = append(result, &p)
	}
	return result, nil
}

func (r *ProblemRepositoryImpl) Count(ctx context.Context, filter ports.ProblemFilter) (int, error) {
	return len(r.collect(filter)), nil
}

func (r *ProblemRepositoryImpl) GetTopicProblems(ctx context.Context, topicID uuid.UUID) ([]*entities.Problem, error) {
	return r.List(ctx, ports.ProblemFilter{TopicID: &topicID})
}

func (r *ProblemRepositoryImpl) RecalculateTime(ctx context.Context) (map[uuid.UUID]int, error) {
	totals := make(map[uuid.UUID]int)
	err := r.store.Mutate(func(doc *docstore.Document) error {
		minutes := make(map[uuid.UUID]int)
		attempts := make(map[uuid.UUID]int)
		for i := range doc.Sessions {
			s := &doc.Sessions[i]
			for pid, share := range splitDuration(s.DurationMinutes, s.ProblemIDs) {
				minutes[pid] += share
				attempts[pid]++
			}
		}

		for i := range doc.Problems {
			p := &doc.Problems[i]
			p.TimeSpentMinutes = minutes[p.ID]
			p.Attempts = attempts[p.ID]
			if p.TimeSpentMinutes > 0 {
				totals[p.ID] = p.TimeSpentMinutes
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recalculate time: %w", err)
	}

	return totals, nil
}

func (r *ProblemRepositoryImpl) collect(filter ports.ProblemFilter) []entities.Problem {
	var problems []entities.Problem
	r.store.View(func(doc *docstore.Document) {
		for _, p := range doc.Problems {
			if filter.TopicID != nil && p.TopicID != *filter.TopicID {
				continue
			}
			if filter.Status != nil && p.Status != *filter.Status {
				continue
			}
			if filter.Difficulty != nil && p.Difficulty != *filter.Difficulty {
				continue
			}
			if filter.Search != nil && *filter.Search != "" &&
				!containsFold(p.Title, *filter.Search) && !containsFold(p.Description, *filter.Search) {
				continue
			}
			problems = append(problems, p)
		}
	})
	return problems
}

// topicExists reports whether the document contains the topic.
func topicExists(doc *docstore.Document, id uuid.UUID) bool {
	for i := range doc.Topics {
		if doc.Topics[i].ID == id {
			return true
		}
	}
	return false
}

// splitDuration divides a session's minutes evenly across its problems,
// spreading the integer remainder over the first few so the shares always
// sum to the full duration.
func splitDuration(minutes int, problemIDs []uuid.UUID) map[uuid.UUID]int {
	shares := make(map[uuid.UUID]int, len(problemIDs))
	n := len(problemIDs)
	if n == 0 || minutes <= 0 {
		return shares
	}

	base := minutes / n
	rem := minutes % n
	for i, pid := range problemIDs {
		share := base
		if i < rem {
			share++
		}
		shares[pid] = share
	}
	return shares
}
