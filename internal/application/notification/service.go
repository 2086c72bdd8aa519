package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/pkg/address"
	"github.com/grainlyyy/pds-api/internal/pkg/id"
)

type Store interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error)
	Update(ctx context.Context, notificationID string, updates map[string]interface{}) (*domain.Notification, error)
}

// Publisher pushes a stored notification to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

type Service interface {
	Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error)
	List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error)
	Update(ctx context.Context, notificationID string, req domain.UpdateNotificationRequest) (*domain.Notification, error)
}

// ServiceDeps wires the notification service. Publisher is optional.
type ServiceDeps struct {
	Store     Store
	Publisher Publisher
	Now       func() time.Time
}

type service struct {
	store     Store
	publisher Publisher
	now       func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{store: deps.Store, publisher: deps.Publisher, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Create(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, error) {
	if req.Type == "" || req.RecipientAddress == "" || req.Message == "" {
		return nil, fmt.Errorf("type, recipientAddress and message are required: %w", domain.ErrMissingField)
	}
	recipient, err := address.Normalize(req.RecipientAddress)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	n := &domain.Notification{
		NotificationID:   id.New(),
		Type:             req.Type,
		RecipientAddress: recipient,
		RecipientType:    req.RecipientType,
		Data:             req.Data,
		Message:          req.Message,
		Status:           domain.NotificationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Put(ctx, n); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			slog.Warn("notification publish failed", "notification_id", n.NotificationID, "recipient", recipient, "err", err)
		}
	}
	return n, nil
}

func (s *service) List(ctx context.Context, f domain.NotificationFilter) ([]domain.Notification, error) {
	if f.RecipientAddress != "" {
		recipient, err := address.Normalize(f.RecipientAddress)
		if err != nil {
			return nil, err
		}
		f.RecipientAddress = recipient
	}
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (s *service) Update(ctx context.Context, notificationID string, req domain.UpdateNotificationRequest) (*domain.Notification, error) {
	updates := map[string]interface{}{}
	if req.Read != nil {
		updates["read"] = *req.Read
	}
	if req.Status != nil {
		switch *req.Status {
		case domain.NotificationPending, domain.NotificationAcknowledged, domain.NotificationCompleted:
			updates["status"] = string(*req.Status)
		default:
			return nil, fmt.Errorf("unknown status %q: %w", *req.Status, domain.ErrBadRequest)
		}
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("nothing to update: %w", domain.ErrBadRequest)
	}
	return s.store.Update(ctx, strings.TrimSpace(notificationID), updates)
}
