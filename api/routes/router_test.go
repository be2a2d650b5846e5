package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jebdekho/jebdekho-backend/internal/analytics/types"
	pkgAuth "github.com/jebdekho/jebdekho-backend/pkg/auth"
	"github.com/jebdekho/jebdekho-backend/pkg/config"
	"github.com/jebdekho/jebdekho-backend/pkg/enums"
	"github.com/jebdekho/jebdekho-backend/pkg/logger"
)

type stubSessionManager struct {
	revoked bool
}

func (s stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return !s.revoked, nil
}

type stubAnalyticsService struct{}

func (stubAnalyticsService) VendorDashboard(context.Context, uuid.UUID) (*types.VendorDashboard, error) {
	return &types.VendorDashboard{}, nil
}

func (stubAnalyticsService) AdminDashboard(context.Context) (*types.AdminDashboard, error) {
	return &types.AdminDashboard{}, nil
}

func (stubAnalyticsService) Revenue(_ context.Context, period types.RevenuePeriod) (*types.RevenueReport, error) {
	return &types.RevenueReport{Period: period}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Marketplace: config.DefaultMarketplace(),
	}
}

func newTestRouter(cfg *config.Config, infra Infra) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if infra.Sessions == nil {
		infra.Sessions = stubSessionManager{}
	}
	return NewRouter(cfg, logg, infra, Services{Analytics: stubAnalyticsService{}})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.Principal{
		UserID: uuid.New(),
		Role:   role,
		Email:  "caller@example.com",
	}, uuid.NewString())
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	resp := serve(newTestRouter(testConfig(), Infra{}), http.MethodGet, "/health/live", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	resp := serve(newTestRouter(testConfig(), Infra{}), http.MethodGet, "/api/v1/users/profile", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsRevokedSession(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{Sessions: stubSessionManager{revoked: true}})
	resp := serve(router, http.MethodGet, "/api/v1/payments/wallet", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for revoked session got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{})

	resp := serve(router, http.MethodGet, "/api/v1/admin/dashboard", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	resp = serve(router, http.MethodGet, "/api/v1/admin/dashboard", buildToken(t, cfg, enums.RoleAdmin))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestVendorGroupRequiresVendorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{})

	resp := serve(router, http.MethodGet, "/api/v1/vendor/dashboard", buildToken(t, cfg, enums.RoleDeliveryPartner))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for driver got %d", resp.Code)
	}

	resp = serve(router, http.MethodGet, "/api/v1/vendor/dashboard", buildToken(t, cfg, enums.RoleVendor))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for vendor got %d", resp.Code)
	}
}

func TestOrderStatusRejectsCustomers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{})
	resp := serve(router, http.MethodPut, "/api/v1/food/orders/"+uuid.NewString()+"/status", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPromoAdminRoutesRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{})
	resp := serve(router, http.MethodDelete, "/api/v1/promos/WELCOME50", buildToken(t, cfg, enums.RoleCustomer))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestPublicCatalogSkipsAuth(t *testing.T) {
	resp := serve(newTestRouter(testConfig(), Infra{}), http.MethodGet, "/api/v1/food/restaurants", "")
	if resp.Code == http.StatusUnauthorized {
		t.Fatal("public catalog must not require a token")
	}
}

func TestEstimateNeedsOnlyAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, Infra{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transport/estimate",
		strings.NewReader(`{"pickupLat":19.076,"pickupLng":72.8777,"dropLat":19.1,"dropLng":72.9,"vehicleType":"AUTO"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.RoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"vehicleType":"AUTO"`) || strings.Contains(resp.Body.String(), `"BIKE"`) {
		t.Fatalf("expected only the AUTO estimate: %s", resp.Body.String())
	}
}

func TestMetricsEndpointMountedWhenConfigured(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	resp := serve(newTestRouter(testConfig(), Infra{MetricsHandler: handler}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "# metrics" {
		t.Fatalf("unexpected metrics response %d %q", resp.Code, resp.Body.String())
	}

	resp = serve(newTestRouter(testConfig(), Infra{}), http.MethodGet, "/metrics", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler got %d", resp.Code)
	}
}
