package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/docstore"
	"github.com/preptrack/core/internal/ports"
)

// TopicRepositoryImpl implements the TopicRepository interface
type TopicRepositoryImpl struct {
	store *docstore.Store
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(store *docstore.Store) ports.TopicRepository {
	return &TopicRepositoryImpl{store: store}
}

func (r *TopicRepositoryImpl) Create(ctx context.Context, topic *entities.Topic) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		for i := range doc.Topics {
			if strings.EqualFold(doc.Topics[i].Name, topic.Name) {
				return entities.ErrTopicNameTaken
			}
		}
		doc.Topics = append(doc.Topics, *topic)
		return nil
	})
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}

	return nil
}

func (r *TopicRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Topic, error) {
	var found *entities.Topic
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Topics {
			if doc.Topics[i].ID == id {
				t := doc.Topics[i]
				found = &t
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrTopicNotFound
	}
	return found, nil
}

func (r *TopicRepositoryImpl) GetByName(ctx context.Context, name string) (*entities.Topic, error) {
	var found *entities.Topic
	r.store.View(func(doc *docstore.Document) {
		for i := range doc.Topics {
			if strings.EqualFold(doc.Topics[i].Name, name) {
				t := doc.Topics[i]
				found = &t
				return
			}
		}
	})

	if found == nil {
		return nil, entities.ErrTopicNotFound
	}
	return found, nil
}

func (r *TopicRepositoryImpl) Update(ctx context.Context, topic *entities.Topic) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		idx := -1
		for i := range doc.Topics {
			if doc.Topics[i].ID == topic.ID {
				idx = i
			} else if strings.EqualFold(doc.Topics[i].Name, topic.Name) {
				return entities.ErrTopicNameTaken
			}
		}
		if idx < 0 {
			return entities.ErrTopicNotFound
		}
		doc.Topics[idx] = *topic
		return nil
	})
	if err != nil {
		return fmt.Errorf("update topic: %w", err)
	}

	return nil
}

func (r *TopicRepositoryImpl) Delete(ctx context.Context, id uuid.UUID, reassignTo *uuid.UUID) error {
	err := r.store.Mutate(func(doc *docstore.Document) error {
		idx := -1
		reassignOK := false
		for i := range doc.Topics {
			if doc.Topics[i].ID == id {
				idx = i
			}
			if reassignTo != nil && doc.Topics[i].ID == *reassignTo {
				reassignOK = true
			}
		}
		if idx < 0 {
			return entities.ErrTopicNotFound
		}

		if reassignTo != nil {
			if *reassignTo == id || !reassignOK {
				return fmt.Errorf("reassignment target: %w", entities.ErrTopicNotFound)
			}
			now := time.Now()
			for i := range doc.Problems {
				if doc.Problems[i].TopicID == id {
					doc.Problems[i].TopicID = *reassignTo
					doc.Problems[i].UpdatedAt = now
				}
			}
		} else {
			// Cascade: drop the topic's problems and scrub them from
			// session references.
			removed := map[uuid.UUID]bool{}
			kept := doc.Problems[:0]
			for _, p := range doc.Problems {
				if p.TopicID == id {
					removed[p.ID] = true
				} else {
					kept = append(kept, p)
				}
			}
			doc.Problems = kept

			for i := range doc.Sessions {
				s := &doc.Sessions[i]
				refs := s.ProblemIDs[:0]
				for _, pid := range s.ProblemIDs {
					if !removed[pid] {
						refs = append(refs, pid)
					}
				}
				s.ProblemIDs = refs
			}
		}

		doc.Topics = append(doc.Topics[:idx], doc.Topics[idx+1:]...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}

	return nil
}

func (r *TopicRepositoryImpl) List(ctx context.Context, filter ports.TopicFilter) ([]*entities.Topic, error) {
	var topics []entities.Topic
	r.store.View(func(doc *docstore.Document) {
		for _, t := range doc.Topics {
			if filter.Search != nil && *filter.Search != "" &&
				!containsFold(t.Name, *filter.Search) && !containsFold(t.Description, *filter.Search) {
				continue
			}
			topics = append(topics, t)
		}
	})

	less := func(i, j int) bool { return topics[i].CreatedAt.Before(topics[j].CreatedAt) }
	if filter.SortBy == "name" {
		less = func(i, j int) bool { return strings.ToLower(topics[i].Name) < strings.ToLower(topics[j].Name) }
	}
	sortStable(len(topics), filter.SortOrder,
		func(i, j int) { topics[i], topics[j] = topics[j], topics[i] }, less)

	lo, hi := window(len(topics), filter.Limit, filter.Offset)
	result := make([]*entities.Topic, 0, hi-lo)
	for i := lo; i < hi; i++ {
		t := topics[i]
		result = append(result, &t)
	}
	return result, nil
}

func (r *TopicRepositoryImpl) Count(ctx context.Context) (int, error) {
	var n int
	r.store.View(func(doc *docstore.Document) {
		n = len(doc.Topics)
	})
	return n, nil
}
