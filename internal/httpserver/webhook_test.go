package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ebook-storefront/internal/domain"
	"ebook-storefront/internal/payment"
	"ebook-storefront/internal/service/fulfillment"
)

const webhookSecret = "whsec_test"

const paidPayload = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","payment_status":"paid","payment_intent":"pi_1","metadata":{"orderId":"8d4c1b8e-3c61-4c5e-9d59-0f3c4d0d6a11"}}}}`

func postWebhook(t *testing.T, svc *stubCheckoutService, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	router := newTestRouter(t, Deps{
		CheckoutSvc: svc,
		Webhooks:    payment.NewVerifier(webhookSecret, 5*time.Minute),
	})
	req := httptest.NewRequest(http.MethodPost, "/checkout/webhook", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(payment.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_BadSignatureNeverReconciles(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong secret":   payment.SignatureFor([]byte(paidPayload), "other", time.Now()),
		"stale":          payment.SignatureFor([]byte(paidPayload), webhookSecret, time.Now().Add(-time.Hour)),
		"garbage":        "t=abc,v1=zz",
	}
	for name, sig := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubCheckoutService{}
			rec := postWebhook(t, svc, paidPayload, sig)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if len(svc.reconciled) != 0 {
				t.Fatalf("reconcile must not run on a bad signature")
			}
		})
	}
}

func TestWebhook_TamperedBodyRejected(t *testing.T) {
	svc := &stubCheckoutService{}
	sig := payment.SignatureFor([]byte(paidPayload), webhookSecret, time.Now())
	tampered := strings.Replace(paidPayload, "cs_1", "cs_2", 1)

	rec := postWebhook(t, svc, tampered, sig)
	if rec.Code != http.StatusBadRequest || len(svc.reconciled) != 0 {
		t.Fatalf("expected rejection, got %d reconciled=%d", rec.Code, len(svc.reconciled))
	}
}

func TestWebhook_ReconcilesVerifiedEvent(t *testing.T) {
	svc := &stubCheckoutService{result: &fulfillment.Result{OrderID: "o1", Status: domain.OrderPaid, Transitioned: true, Granted: 1}}
	sig := payment.SignatureFor([]byte(paidPayload), webhookSecret, time.Now())

	rec := postWebhook(t, svc, paidPayload, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(svc.reconciled) != 1 {
		t.Fatalf("expected one reconcile, got %d", len(svc.reconciled))
	}
	ev := svc.reconciled[0]
	if ev.ExternalRef != "cs_1" || ev.PaymentID != "pi_1" || ev.Outcome != domain.PaymentSucceeded {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestWebhook_DuplicateIsAcknowledged(t *testing.T) {
	svc := &stubCheckoutService{result: &fulfillment.Result{OrderID: "o1", Status: domain.OrderPaid, Duplicate: true}}
	sig := payment.SignatureFor([]byte(paidPayload), webhookSecret, time.Now())

	rec := postWebhook(t, svc, paidPayload, sig)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"duplicate":true`) {
		t.Fatalf("expected acknowledged duplicate, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWebhook_IgnoredEventType(t *testing.T) {
	body := `{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"pi_1"}}}`
	svc := &stubCheckoutService{}
	rec := postWebhook(t, svc, body, payment.SignatureFor([]byte(body), webhookSecret, time.Now()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.reconciled) != 0 {
		t.Fatalf("ignored events must not reconcile")
	}
}

func TestWebhook_UnknownOrder(t *testing.T) {
	svc := &stubCheckoutService{reconErr: domain.ErrUnknownOrder}
	rec := postWebhook(t, svc, paidPayload, payment.SignatureFor([]byte(paidPayload), webhookSecret, time.Now()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
