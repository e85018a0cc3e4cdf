package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"goodstay/internal/config"
	"goodstay/internal/domain/model"
	"goodstay/internal/handler"
	infraRepo "goodstay/internal/infra/repository"
	"goodstay/internal/payment"
	"goodstay/internal/server"
	"goodstay/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	e2eJWTSecret     = "e2e-secret"
	e2eAdminEmail    = "admin@goodstay.test"
	e2eAdminPassword = "admin-pass-123"

	// fakeProviderが受け付ける署名
	validSignature = "t=1,v1=valid"
)

// =====================
// fake payment provider
// =====================

// Stripeの代役。セッションをメモリに持ち、テストから支払い済みにできる
type fakeProvider struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]payment.Session
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{sessions: map[string]payment.Session{}}
}

func (f *fakeProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	s := payment.Session{
		ID:       fmt.Sprintf("cs_test_%d", f.seq),
		URL:      fmt.Sprintf("https://checkout.test/%d", f.seq),
		Metadata: req.Metadata,
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeProvider) GetSession(ctx context.Context, id string) (payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[id]
	if !ok {
		return payment.Session{}, errors.New("no such session")
	}
	return s, nil
}

// 決済完了を再現する
func (f *fakeProvider) markPaid(sessionID, paymentIntentID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := f.sessions[sessionID]
	s.Paid = true
	s.PaymentIntentID = paymentIntentID
	f.sessions[sessionID] = s
}

// webhookボディはテスト用の素朴なJSON。署名が合わなければ拒否する
type fakeWebhookPayload struct {
	Type            string `json:"type"`
	SessionID       string `json:"session_id"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (f *fakeProvider) VerifyEvent(payload []byte, sigHeader string) (payment.Event, error) {
	if sigHeader != validSignature {
		return payment.Event{}, errors.New("signature mismatch")
	}

	var p fakeWebhookPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return payment.Event{}, err
	}

	ev := payment.Event{Type: p.Type, PaymentIntentID: p.PaymentIntentID}
	if p.SessionID != "" {
		s, err := f.GetSession(context.Background(), p.SessionID)
		if err != nil {
			return payment.Event{}, err
		}
		ev.Session = &s
	}
	return ev, nil
}

// =====================
// adjustable clock
// =====================

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.t.IsZero() {
		return time.Now()
	}
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// =====================
// test server
// =====================

type testApp struct {
	e        *echo.Echo
	db       *gorm.DB
	provider *fakeProvider
	clock    *testClock
}

func e2eConfig() config.Config {
	return config.Config{
		Port:      "0",
		JWTSecret: e2eJWTSecret,
		GoEnv:     "test",
		Stripe: config.Stripe{
			SecretKey:     "sk_test_dummy",
			WebhookSecret: "whsec_dummy",
			SuccessURL:    "https://goodstay.test/success",
			CancelURL:     "https://goodstay.test/cart",
		},
		Booking: config.Booking{
			OpenTime:        "09:00",
			CloseTime:       "17:00",
			SlotIntervalMin: 60,
			MinAdvanceHours: 3,
		},
	}
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	//テストごとに独立したin-memory DB
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	assert.NoError(t, err)

	sqlDB, err := gdb.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.Booking{},
		&model.AdminUser{},
		&model.AuditLog{},
	)
	assert.NoError(t, err)

	cfg := e2eConfig()
	log := zap.NewNop()
	provider := newFakeProvider()
	clock := &testClock{}

	productRepo := infraRepo.NewProductGormRepository(gdb)
	bookingRepo := infraRepo.NewBookingGormRepository(gdb)
	adminRepo := infraRepo.NewAdminUserGormRepository(gdb)
	auditRepo := infraRepo.NewAuditLogGormRepository(gdb)
	txManager := infraRepo.NewTxManagerGorm(gdb)

	checkoutUC := usecase.NewCheckoutUsecase(provider, log)
	reconcileUC := usecase.NewReconcileUsecase(provider, txManager, log)
	bookingUC := usecase.NewBookingUsecase(bookingRepo, cfg.Booking, clock, log)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager)
	adminBookingUC := usecase.NewAdminBookingUsecase(txManager)
	authUC := usecase.NewAuthUsecase(adminRepo, cfg.JWTSecret, clock, log)

	err = authUC.EnsureAdmin(context.Background(), e2eAdminEmail, e2eAdminPassword)
	assert.NoError(t, err)

	h := server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC, reconcileUC),
		Webhook:      handler.NewWebhookHandler(reconcileUC),
		Booking:      handler.NewBookingHandler(bookingUC),
		Auth:         handler.NewAuthHandler(authUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminBooking: handler.NewAdminBookingHandler(adminBookingUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
	}

	return &testApp{
		e:        server.New(cfg, log, h),
		db:       gdb,
		provider: provider,
		clock:    clock,
	}
}

// =====================
// request helpers
// =====================

func (a *testApp) request(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return a.request(t, http.MethodGet, path, nil, nil)
}

func (a *testApp) postJSON(t *testing.T, path string, body interface{}) *httptest.ResponseRecorder {
	return a.request(t, http.MethodPost, path, body, nil)
}

func (a *testApp) webhook(t *testing.T, payload fakeWebhookPayload, sig string) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(payload)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(raw))
	req.Header.Set("Stripe-Signature", sig)

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()

	rec := a.postJSON(t, "/admin/login", map[string]string{
		"email":    e2eAdminEmail,
		"password": e2eAdminPassword,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, rec, &out)
	assert.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func (a *testApp) authed(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	return a.request(t, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func (a *testApp) countRows(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	assert.NoError(t, a.db.Model(m).Count(&n).Error)
	return n
}

func (a *testApp) seedProduct(t *testing.T, p model.Product) model.Product {
	t.Helper()
	assert.NoError(t, a.db.Create(&p).Error)
	return p
}
