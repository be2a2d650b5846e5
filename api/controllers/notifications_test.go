package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/notifications"
	"github.com/jebdekho/jebdekho-backend/pkg/db/models"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	pkgerrors "github.com/jebdekho/jebdekho-backend/pkg/errors"
)

type testNotificationsService struct {
	markReadFn    func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAllReadFn func(ctx context.Context, userID uuid.UUID) (int64, error)
	listFn        func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	deleteFn      func(ctx context.Context, userID, notificationID uuid.UUID) error
}

func (s *testNotificationsService) Send(context.Context, notifications.SendInput) (models.Notification, error) {
	return models.Notification{}, nil
}

func (s *testNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return &notifications.ListResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, userID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

func (s *testNotificationsService) Delete(ctx context.Context, userID, notificationID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, notificationID)
	}
	return nil
}

func (s *testNotificationsService) PurgeRead(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestListNotificationsPassesUnreadFilter(t *testing.T) {
	userID := uuid.New()
	var got notifications.ListParams
	svc := &testNotificationsService{
		listFn: func(_ context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
			got = params
			return &notifications.ListResult{UnreadCount: 2}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true&page=2&limit=5", nil)
	req = withCaller(req, userID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListNotifications(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if got.UserID != userID || !got.UnreadOnly {
		t.Fatalf("unexpected params %+v", got)
	}
	if got.Page.Page != 2 || got.Page.Limit != 5 {
		t.Fatalf("unexpected page %+v", got.Page)
	}
}

func TestListNotificationsRejectsBadUnread(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=maybe", nil)
	req = withCaller(req, uuid.New(), enums.RoleCustomer)
	resp := httptest.NewRecorder()
	ListNotifications(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkNotificationReadSuccess(t *testing.T) {
	userID := uuid.New()
	notificationID := uuid.New()
	called := false
	svc := &testNotificationsService{
		markReadFn: func(_ context.Context, uid, nid uuid.UUID) error {
			called = true
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			if nid != notificationID {
				t.Fatalf("unexpected notification %s", nid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/"+notificationID.String()+"/read", nil)
	req = withCaller(req, userID, enums.RoleCustomer)
	req = addRouteParam(req, "id", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var data map[string]bool
	if err := json.Unmarshal(decodeEnvelope(t, resp.Body.Bytes()).Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if !data["read"] {
		t.Fatal("response missing read flag")
	}
}

func TestMarkNotificationReadOtherUsersNotification(t *testing.T) {
	svc := &testNotificationsService{
		markReadFn: func(context.Context, uuid.UUID, uuid.UUID) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "Access denied")
		},
	}
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/"+id+"/read", nil)
	req = withCaller(req, uuid.New(), enums.RoleCustomer)
	req = addRouteParam(req, "id", id)
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestMarkNotificationReadInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/invalid/read", nil)
	req = withCaller(req, uuid.New(), enums.RoleCustomer)
	req = addRouteParam(req, "id", "invalid")
	resp := httptest.NewRecorder()
	MarkNotificationRead(&testNotificationsService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestMarkAllNotificationsReadSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &testNotificationsService{
		markAllReadFn: func(_ context.Context, uid uuid.UUID) (int64, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return 5, nil
		},
	}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/notifications/read-all", nil)
	req = withCaller(req, userID, enums.RoleCustomer)
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	var data map[string]float64
	if err := json.Unmarshal(decodeEnvelope(t, resp.Body.Bytes()).Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data["updated"] != 5 {
		t.Fatalf("expected updated=5 got %v", data["updated"])
	}
}

func TestNotificationsUnavailable(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/x", nil)
	resp := httptest.NewRecorder()
	DeleteNotification(nil, testLogger())(resp, req)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
