package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/promptforge/backend/internal/answers"
	"github.com/promptforge/backend/internal/catalog"
	"github.com/promptforge/backend/internal/db"
	"github.com/promptforge/backend/internal/generation"
	"github.com/promptforge/backend/internal/gpt"
	"github.com/promptforge/backend/internal/handlers"
	"github.com/promptforge/backend/internal/history"
	"github.com/promptforge/backend/internal/logging"
	"github.com/promptforge/backend/internal/paywall"
)

var testSecret = []byte("router-test-secret")

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "router.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := logging.Nop()
	store := answers.New(gdb)
	cat := catalog.New(gdb)
	engine := paywall.NewEngine(gdb)
	networks := []netip.Prefix{netip.MustParsePrefix("185.71.76.0/27")}

	return Router(Deps{
		Questions: &handlers.Questions{
			Catalog: cat,
			Store:   store,
			Gen:     generation.New(gdb, &gpt.Scripted{Response: "ok"}, log),
		},
		Templates: &handlers.Templates{Store: store},
		Payments: &handlers.Payments{
			Engine:   engine,
			Checkout: paywall.NewCheckout(gdb, nil, networks, log),
		},
		History:   &handlers.History{Service: history.New(gdb)},
		JWTSecret: testSecret,
	})
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestRouterHealthz(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterGatedWithoutToken(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/question/categories", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "User is not authorized" {
		t.Errorf("unexpected message %q", body["message"])
	}
}

func TestRouterGatedWithToken(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/question/categories", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-1"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterCallbackFromUnknownSource(t *testing.T) {
	r := newTestRouter(t)
	body := strings.NewReader(`{"event":"payment.succeeded","object":{"id":"pay-1"}}`)
	req := httptest.NewRequest(http.MethodPost, "/pay/succeeded", body)
	req.RemoteAddr = "203.0.113.9:4711"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestRouterCallbackFromProviderNetwork(t *testing.T) {
	r := newTestRouter(t)
	body := strings.NewReader(`{"event":"payment.succeeded","object":{"id":"unknown"}}`)
	req := httptest.NewRequest(http.MethodPost, "/pay/succeeded", body)
	req.RemoteAddr = "185.71.76.5:443"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Unknown payment id from a trusted source is acknowledged as a no-op.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
