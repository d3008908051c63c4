package notify

import (
	"context"
	"encoding/json"

	"log/slog"

	"github.com/vitorwdson/hercules/internal/domain"
	"github.com/vitorwdson/hercules/internal/repository"
	"github.com/vitorwdson/hercules/internal/ws"
)

// Service serves the per-user notification feed and pushes unread counts to
// connected clients.
type Service struct {
	repo     repository.NotificationRepository
	hub      *ws.Hub
	logger   *slog.Logger
	pageSize int
}

// New constructs a Service.
func New(repo repository.NotificationRepository, hub *ws.Hub, logger *slog.Logger, pageSize int) Service {
	if pageSize <= 0 {
		pageSize = 5
	}
	return Service{repo: repo, hub: hub, logger: logger, pageSize: pageSize}
}

// UnreadCount returns the user's unread notification count.
func (s Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// FeedPage is one page of a user's notification feed, newest first.
type FeedPage struct {
	Notifications []domain.Notification
	// LazyLoad reports whether older pages may remain below this one.
	LazyLoad bool
}

// Feed returns a page of the user's feed. beforeID pages backwards through
// older rows; afterID fetches every row that arrived since the client's newest
// known row and, as a side effect, marks everything up to the newest returned
// row as seen. The forward fetch is unbounded so that no row is marked seen
// without having been delivered. At most one cursor may be set.
func (s Service) Feed(ctx context.Context, userID string, beforeID, afterID int64) (FeedPage, error) {
	if afterID > 0 {
		notes, err := s.repo.ListNotifications(ctx, userID, 0, afterID, 0)
		if err != nil {
			return FeedPage{}, err
		}
		if len(notes) > 0 {
			if err := s.repo.MarkReadThrough(ctx, userID, notes[0].ID); err != nil {
				return FeedPage{}, err
			}
		}
		return FeedPage{Notifications: notes, LazyLoad: false}, nil
	}

	notes, err := s.repo.ListNotifications(ctx, userID, beforeID, 0, s.pageSize)
	if err != nil {
		return FeedPage{}, err
	}
	return FeedPage{Notifications: notes, LazyLoad: true}, nil
}

// Push broadcasts fresh unread counts to each recipient's connected clients.
// Called after the triggering transaction commits; delivery is best effort.
func (s Service) Push(ctx context.Context, userIDs ...string) {
	if s.hub == nil {
		return
	}
	seen := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		if _, done := seen[userID]; done {
			continue
		}
		seen[userID] = struct{}{}

		count, err := s.repo.CountUnread(ctx, userID)
		if err != nil {
			s.logger.Warn("unread count push failed", "user_id", userID, "error", err)
			continue
		}
		payload, err := json.Marshal(map[string]any{"event": "notification:count", "unread": count})
		if err != nil {
			continue
		}
		s.hub.Broadcast(userID, payload)
	}
}
