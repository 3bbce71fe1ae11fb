package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// TopicService handles topic management operations
type TopicService struct {
	topicRepo   ports.TopicRepository
	problemRepo ports.ProblemRepository
	logger      *logger.Logger
}

// NewTopicService creates a new topic service
func NewTopicService(topicRepo ports.TopicRepository, problemRepo ports.ProblemRepository, logger *logger.Logger) *TopicService {
	return &TopicService{
		topicRepo:   topicRepo,
		problemRepo: problemRepo,
		logger:      logger,
	}
}

// CreateTopic creates a new topic with a unique name
func (s *TopicService) CreateTopic(ctx context.Context, req ports.CreateTopicRequest) (*entities.Topic, error) {
	if _, err := s.topicRepo.GetByName(ctx, req.Name); err == nil {
		return nil, entities.ErrTopicNameTaken
	}

	topic := &entities.Topic{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}

	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}

	s.logger.Info("Topic created", "topic_id", topic.ID, "name", topic.Name)

	return topic, nil
}

// GetTopic retrieves a topic by ID
func (s *TopicService) GetTopic(ctx context.Context, id uuid.UUID) (*entities.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topic not found: %w", err)
	}

	return topic, nil
}

// UpdateTopic updates a topic's information
func (s *TopicService) UpdateTopic(ctx context.Context, id uuid.UUID, req ports.UpdateTopicRequest) (*entities.Topic, error) {
	topic, err := s.topicRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("topic not found: %w", err)
	}

	if req.Name != nil {
		topic.Name = *req.Name
	}
	if req.Description != nil {
		topic.Description = *req.Description
	}

	if err := s.topicRepo.Update(ctx, topic); err != nil {
		return nil, fmt.Errorf("failed to update topic: %w", err)
	}

	s.logger.Info("Topic updated", "topic_id", topic.ID)

	return topic, nil
}

// DeleteTopic deletes a topic, cascading its problems unless a reassignment
// target is given.
func (s *TopicService) DeleteTopic(ctx context.Context, id uuid.UUID, req ports.DeleteTopicRequest) error {
	if _, err := s.topicRepo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("topic not found: %w", err)
	}

	dependents, err := s.problemRepo.Count(ctx, ports.ProblemFilter{TopicID: &id})
	if err != nil {
		return fmt.Errorf("failed to count topic problems: %w", err)
	}

	if err := s.topicRepo.Delete(ctx, id, req.ReassignTo); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}

	if req.ReassignTo != nil {
		s.logger.Info("Topic deleted, problems reassigned",
			"topic_id", id, "reassigned_to", *req.ReassignTo, "problems", dependents)
	} else {
		s.logger.Info("Topic deleted with problems", "topic_id", id, "problems", dependents)
	}

	return nil
}

// ListTopics retrieves topics with filtering and pagination
func (s *TopicService) ListTopics(ctx context.Context, filter ports.TopicFilter) ([]*entities.Topic, int, error) {
	topics, err := s.topicRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list topics: %w", err)
	}

	total, err := s.topicRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count topics: %w", err)
	}

	return topics, total, nil
}
