package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/relay"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
	"github.com/jebdekho/jebdekho-backend/pkg/pagination"
)

// Publisher pushes live events; relay.Hub implements it.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data any) error
}

// Service persists user-directed notifications and mirrors them live. The
// stored record is the durable path; the live event is best effort.
type Service interface {
	Send(ctx context.Context, input SendInput) (models.Notification, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID, notificationID uuid.UUID) error
	PurgeRead(ctx context.Context, olderThan time.Time) (int64, error)
}

type SendInput struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    enums.NotificationType
	Data    any
}

// ListParams configures pagination for notifications.
type ListParams struct {
	UserID     uuid.UUID
	Page       pagination.Params
	UnreadOnly bool
}

// ListResult is one page plus the caller's total unread count.
type ListResult struct {
	Items       []models.Notification `json:"items"`
	Pagination  pagination.Meta       `json:"pagination"`
	UnreadCount int64                 `json:"unreadCount"`
}

type service struct {
	repo      Repository
	publisher Publisher
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires notifications dependencies.
func NewService(repo Repository, publisher Publisher, logg *logger.Logger, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, publisher: publisher, logg: logg, now: now}, nil
}

func (s *service) Send(ctx context.Context, input SendInput) (models.Notification, error) {
	if input.UserID == uuid.Nil {
		return models.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return models.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.Type == "" {
		input.Type = enums.NotificationTypeSystem
	}
	if !input.Type.IsValid() {
		return models.Notification{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification type")
	}

	n := models.Notification{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Title:     input.Title,
		Message:   input.Message,
		Type:      input.Type,
		CreatedAt: s.now().UTC(),
	}
	if input.Data != nil {
		raw, err := json.Marshal(input.Data)
		if err != nil {
			return models.Notification{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification data")
		}
		n.Data = raw
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		return models.Notification{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store notification")
	}

	if err := s.publisher.Publish(ctx, relay.UserChannel(n.UserID), relay.EventNotification, n); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"notification_id": n.ID.String(),
			"error":           err.Error(),
		}), "notification.publish_failed")
	}
	return n, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	page := params.Page.Normalize()
	rows, total, err := s.repo.List(ctx, ListQuery{
		UserID:     params.UserID,
		UnreadOnly: params.UnreadOnly,
		Offset:     page.Offset(),
		Limit:      page.Limit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, params.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	if rows == nil {
		rows = []models.Notification{}
	}
	return &ListResult{
		Items:       rows,
		Pagination:  pagination.NewMeta(page, int(total)),
		UnreadCount: unread,
	}, nil
}

// owned loads a notification and checks it belongs to userID.
func (s *service) owned(ctx context.Context, userID, notificationID uuid.UUID) error {
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if n == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Notification not found")
	}
	if n.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
	}
	return nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, notificationID, s.now().UTC()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if err := s.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, notificationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete notification")
	}
	return nil
}

func (s *service) PurgeRead(ctx context.Context, olderThan time.Time) (int64, error) {
	deleted, err := s.repo.DeleteReadBefore(ctx, olderThan)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "purge read notifications")
	}
	return deleted, nil
}
