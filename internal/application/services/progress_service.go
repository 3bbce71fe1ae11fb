package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/preptrack/core/internal/domain/entities"
	"github.com/preptrack/core/internal/infrastructure/logger"
	"github.com/preptrack/core/internal/ports"
)

// ProgressService computes derived statistics over the stored document. All
// methods are read-only.
type ProgressService struct {
	topicRepo   ports.TopicRepository
	problemRepo ports.ProblemRepository
	sessionRepo ports.SessionRepository
	logger      *logger.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(
	topicRepo ports.TopicRepository,
	problemRepo ports.ProblemRepository,
	sessionRepo ports.SessionRepository,
	logger *logger.Logger,
) *ProgressService {
	return &ProgressService{
		topicRepo:   topicRepo,
		problemRepo: problemRepo,
		sessionRepo: sessionRepo,
		logger:      logger,
	}
}

// Overview aggregates overall completion, status and difficulty breakdowns,
// and total study time.
func (s *ProgressService) Overview(ctx context.Context) (*entities.Progress, error) {
	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}
	sessions, err := s.sessionRepo.List(ctx, ports.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	topicsCount, err := s.topicRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count topics: %w", err)
	}

	progress := &entities.Progress{
		TotalProblems: len(problems),
		ByStatus:      make(map[entities.Status]int),
		ByDifficulty:  make(map[entities.Difficulty]int),
		TotalSessions: len(sessions),
		TopicsCount:   topicsCount,
	}
	for _, st := range entities.AllStatuses() {
		progress.ByStatus[st] = 0
	}
	for _, d := range entities.AllDifficulties() {
		progress.ByDifficulty[d] = 0
	}

	for _, p := range problems {
		progress.ByStatus[p.Status]++
		progress.ByDifficulty[p.Difficulty]++
		if p.IsCompleted() {
			progress.CompletedProblems++
		}
	}
	if progress.TotalProblems > 0 {
		progress.CompletionRate = float64(progress.CompletedProblems) / float64(progress.TotalProblems) * 100
	}

	for _, sess := range sessions {
		progress.TotalStudyMinutes += sess.DurationMinutes
	}

	return progress, nil
}

// TopicStats returns per-topic completion rates, ordered by topic name.
func (s *ProgressService) TopicStats(ctx context.Context) ([]entities.TopicProgress, error) {
	topics, err := s.topicRepo.List(ctx, ports.TopicFilter{SortBy: "name"})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	stats := make([]entities.TopicProgress, 0, len(topics))
	for _, t := range topics {
		tp := entities.TopicProgress{TopicID: t.ID, TopicName: t.Name}
		for _, p := range problems {
			if p.TopicID != t.ID {
				continue
			}
			tp.TotalProblems++
			if p.IsCompleted() {
				tp.CompletedProblems++
			}
		}
		if tp.TotalProblems > 0 {
			tp.CompletionRate = float64(tp.CompletedProblems) / float64(tp.TotalProblems) * 100
		}
		stats = append(stats, tp)
	}

	return stats, nil
}

// DifficultyStats returns completion rates per difficulty level.
func (s *ProgressService) DifficultyStats(ctx context.Context) ([]entities.DifficultyProgress, error) {
	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	stats := make([]entities.DifficultyProgress, 0, 3)
	for _, d := range entities.AllDifficulties() {
		dp := entities.DifficultyProgress{Difficulty: d}
		for _, p := range problems {
			if p.Difficulty != d {
				continue
			}
			dp.Total++
			if p.IsCompleted() {
				dp.Completed++
			}
		}
		if dp.Total > 0 {
			dp.Rate = float64(dp.Completed) / float64(dp.Total) * 100
		}
		stats = append(stats, dp)
	}

	return stats, nil
}

// WeeklyProgress buckets the last N weeks of activity, counting problems
// completed and problems added per week.
func (s *ProgressService) WeeklyProgress(ctx context.Context, weeks int) (*ports.WeeklyProgress, error) {
	if weeks <= 0 {
		weeks = 4
	}

	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	now := time.Now()
	result := &ports.WeeklyProgress{
		Weeks:     make([]string, weeks),
		Completed: make([]int, weeks),
		Attempted: make([]int, weeks),
	}

	// Oldest week first. Week i covers [now - (weeks-i)*7d, now - (weeks-i-1)*7d).
	for i := 0; i < weeks; i++ {
		start := now.AddDate(0, 0, -7*(weeks-i))
		end := start.AddDate(0, 0, 7)
		result.Weeks[i] = start.Format("Jan 02")

		for _, p := range problems {
			if p.CompletedAt != nil && !p.CompletedAt.Before(start) && p.CompletedAt.Before(end) {
				result.Completed[i]++
			}
			if !p.CreatedAt.Before(start) && p.CreatedAt.Before(end) {
				result.Attempted[i]++
			}
		}
	}

	return result, nil
}

// TimeDistribution sums accumulated problem time per topic, largest first.
func (s *ProgressService) TimeDistribution(ctx context.Context) ([]ports.TimeDistributionEntry, error) {
	topics, err := s.topicRepo.List(ctx, ports.TopicFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	entries := make([]ports.TimeDistributionEntry, 0, len(topics))
	for _, t := range topics {
		entry := ports.TimeDistributionEntry{TopicID: t.ID, TopicName: t.Name}
		for _, p := range problems {
			if p.TopicID == t.ID {
				entry.Minutes += p.TimeSpentMinutes
			}
		}
		if entry.Minutes > 0 {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Minutes > entries[j].Minutes })

	return entries, nil
}

// AttemptsDistribution buckets problems by how many attempts they took.
func (s *ProgressService) AttemptsDistribution(ctx context.Context) (*ports.AttemptsDistribution, error) {
	problems, err := s.problemRepo.List(ctx, ports.ProblemFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list problems: %w", err)
	}

	dist := &ports.AttemptsDistribution{TotalProblems: len(problems)}
	for _, p := range problems {
		switch {
		case p.Attempts == 0:
			dist.NotAttempted++
		case p.Attempts == 1:
			dist.OneAttempt++
		case p.Attempts == 2:
			dist.TwoAttempts++
		default:
			dist.ThreePlus++
		}
	}

	return dist, nil
}

// ProductivityInsights summarizes session habits, including the single most
// productive session by problems worked.
func (s *ProgressService) ProductivityInsights(ctx context.Context) (*ports.ProductivityInsights, error) {
	sessions, err := s.sessionRepo.List(ctx, ports.SessionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	insights := &ports.ProductivityInsights{TotalSessions: len(sessions)}
	totalProblems := 0
	for _, sess := range sessions {
		insights.TotalStudyMinutes += sess.DurationMinutes
		totalProblems += len(sess.ProblemIDs)

		if len(sess.ProblemIDs) > insights.BestSessionProblems ||
			(len(sess.ProblemIDs) == insights.BestSessionProblems && sess.DurationMinutes > insights.BestSessionMinutes) {
			started := sess.StartedAt
			insights.BestSessionDate = &started
			insights.BestSessionProblems = len(sess.ProblemIDs)
			insights.BestSessionMinutes = sess.DurationMinutes
		}
	}

	if len(sessions) > 0 {
		insights.AverageSessionMinutes = float64(insights.TotalStudyMinutes) / float64(len(sessions))
	}
	if insights.TotalStudyMinutes > 0 {
		insights.ProblemsPerHour = float64(totalProblems) / (float64(insights.TotalStudyMinutes) / 60)
	}

	return insights, nil
}

// Recommendations derives study advice from completion rates and session
// habits.
func (s *ProgressService) Recommendations(ctx context.Context) ([]string, error) {
	diffStats, err := s.DifficultyStats(ctx)
	if err != nil {
		return nil, err
	}
	topicStats, err := s.TopicStats(ctx)
	if err != nil {
		return nil, err
	}
	insights, err := s.ProductivityInsights(ctx)
	if err != nil {
		return nil, err
	}

	// Completion-rate targets per difficulty level.
	targets := map[entities.Difficulty]float64{
		entities.DifficultyEasy:   80,
		entities.DifficultyMedium: 60,
		entities.DifficultyHard:   40,
	}

	// Only the easiest difficulty below its target gets flagged.
	var recs []string
	for _, dp := range diffStats {
		if dp.Total > 0 && dp.Rate < targets[dp.Difficulty] {
			recs = append(recs, fmt.Sprintf(
				"Focus on %s problems: %.0f%% completed, aim for %.0f%%",
				dp.Difficulty, dp.Rate, targets[dp.Difficulty]))
			break
		}
	}

	var weakest *entities.TopicProgress
	for i := range topicStats {
		tp := &topicStats[i]
		if tp.TotalProblems == 0 {
			continue
		}
		if weakest == nil || tp.CompletionRate < weakest.CompletionRate {
			weakest = tp
		}
	}
	if weakest != nil && weakest.CompletionRate < 50 {
		recs = append(recs, fmt.Sprintf(
			"Your weakest topic is %s at %.0f%% completion, consider reviewing it",
			weakest.TopicName, weakest.CompletionRate))
	}

	if insights.TotalSessions > 0 && insights.AverageSessionMinutes < 30 {
		recs = append(recs, "Your sessions average under 30 minutes, try longer focused blocks")
	}

	if len(recs) == 0 {
		recs = append(recs, "You are on track across all difficulties and topics, keep it up")
	}

	return recs, nil
}

// RotationStats summarizes how many completed problems have been reviewed in
// the current rotation round.
func (s *ProgressService) RotationStats(ctx context.Context) (*entities.RotationStats, error) {
	status := entities.StatusCompleted
	completed, err := s.problemRepo.List(ctx, ports.ProblemFilter{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("failed to list completed problems: %w", err)
	}

	stats := &entities.RotationStats{TotalCompleted: len(completed)}
	for _, p := range completed {
		if p.RotationCompletedAt != nil {
			stats.TotalReviewed++
		}
	}
	stats.PendingReview = stats.TotalCompleted - stats.TotalReviewed

	return stats, nil
}
