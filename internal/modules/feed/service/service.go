package service

import (
	"fmt"
	"time"

	"github.com/gorilla/feeds"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"tgrelay/internal/modules/outcome/domain"
	outcomeRepo "tgrelay/internal/modules/outcome/repository"
)

// window of outcomes shown in the activity feed
const activityWindow = 7 * 24 * time.Hour

// Service renders recent relay activity as an RSS feed, so the operator
// can watch what left the pipeline from any feed reader.
type Service struct {
	outcomes outcomeRepo.Repository
}

// New creates a new feed service
func New(outcomes outcomeRepo.Repository) *Service {
	return &Service{outcomes: outcomes}
}

// GenerateActivityFeed builds the RSS feed of delivered messages.
func (s *Service) GenerateActivityFeed(baseURL string) (*feeds.Feed, error) {
	recent, err := s.outcomes.GetRecentOutcomes(time.Now().Add(-activityWindow))
	if err != nil {
		return nil, oops.With("context", "failed to load recent outcomes").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       "Relay activity",
		Link:        &feeds.Link{Href: baseURL + "/activity.rss"},
		Description: "Messages relayed to destination conversations",
		Created:     time.Now(),
	}

	feed.Items = lo.FilterMap(recent, func(o *domain.Outcome, _ int) (*feeds.Item, bool) {
		if !o.Delivered() {
			return nil, false
		}
		return s.outcomeToFeedItem(o), true
	})

	return feed, nil
}

func (s *Service) outcomeToFeedItem(o *domain.Outcome) *feeds.Item {
	title := truncate(o.Text, 100)
	if title == "" {
		title = "(media)"
	}

	description := fmt.Sprintf("%s to %d (rule %s, message %d)", o.Status, o.Destination, o.RuleID, o.MessageID)
	if o.ScheduledAt != nil {
		description += fmt.Sprintf(", delivery at %s", o.ScheduledAt.Format(time.RFC3339))
	}

	return &feeds.Item{
		Title:       title,
		Description: description,
		Created:     o.RecordedAt,
		Id:          o.ID,
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
