package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/growthlab/mentorship-backend/internal/domain/model"
	"github.com/growthlab/mentorship-backend/internal/usecase"
)

const testWebhookSecret = "whsec_test"

type stubEventRepo struct {
	recorded  int
	processed int
}

func (r *stubEventRepo) Record(ctx context.Context, event *model.WebhookEvent) error {
	r.recorded++
	return nil
}

func (r *stubEventRepo) MarkProcessed(ctx context.Context, stripeEventID string, processErr error) error {
	r.processed++
	return nil
}

func signedWebhookRequest(payload string) *http.Request {
	now := time.Now()
	sig := webhook.ComputeSignature(now, []byte(payload), testWebhookSecret)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%x", now.Unix(), sig))
	return req
}

func newTestWebhookHandler(events *stubEventRepo) *WebhookHandler {
	svc := usecase.NewWebhookService(nil, nil, nil, events, zap.NewNop())
	return NewWebhookHandler(zap.NewNop(), testWebhookSecret, svc)
}

func TestWebhookHandler_ValidSignatureAcknowledged(t *testing.T) {
	events := &stubEventRepo{}
	handler := newTestWebhookHandler(events)

	// Event type nothing subscribes to; only the audit trail is touched.
	payload := `{"id":"evt_1","type":"payment_intent.succeeded","created":1767225600,"data":{"object":{"id":"pi_1"}}}`
	req := signedWebhookRequest(payload)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	err := handler.HandleWebhook(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "received")
	assert.Equal(t, 1, events.recorded)
	assert.Equal(t, 1, events.processed)
}

func TestWebhookHandler_BadSignatureRejected(t *testing.T) {
	events := &stubEventRepo{}
	handler := newTestWebhookHandler(events)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	err := handler.HandleWebhook(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, events.recorded)
}

func TestWebhookHandler_MissingSignatureRejected(t *testing.T) {
	events := &stubEventRepo{}
	handler := newTestWebhookHandler(events)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	err := handler.HandleWebhook(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
