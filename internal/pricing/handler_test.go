package pricing

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-pricing/internal/overrides"
)

func newTestHandler(source *stubSource) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(source, &stubSink{}, nil, nil, logger)
	svc.now = func() time.Time { return testAsOf }
	return NewHandler(logger, svc)
}

func postResolve(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/pricing/resolve", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)
	return rec
}

func TestHandlerResolveAppliesDiscount(t *testing.T) {
	rule := productRule("ovr-1", testAsOf, func(r *overrides.OverrideRecord) {
		r.MinimumQuantity = 5
	})
	h := newTestHandler(&stubSource{records: []overrides.OverrideRecord{rule}})

	rec := postResolve(t, h, resolveReq())
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		FinalPrice        float64 `json:"final_price"`
		DiscountApplied   bool    `json:"discount_applied"`
		DiscountAmount    float64 `json:"discount_amount"`
		AppliedRuleID     *string `json:"applied_rule_id"`
		FinalPriceDisplay string  `json:"final_price_display"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 180.00, body.FinalPrice)
	assert.True(t, body.DiscountApplied)
	assert.Equal(t, 20.00, body.DiscountAmount)
	require.NotNil(t, body.AppliedRuleID)
	assert.Equal(t, "ovr-1", *body.AppliedRuleID)
	assert.Equal(t, "180.00", body.FinalPriceDisplay)
}

func TestHandlerResolveFormatsLargePrices(t *testing.T) {
	rule := productRule("ovr-1", testAsOf, func(r *overrides.OverrideRecord) {
		r.DiscountPercent = nil
		r.FixedPrice = floatPtr(12500)
	})
	h := newTestHandler(&stubSource{records: []overrides.OverrideRecord{rule}})

	rec := postResolve(t, h, resolveReq())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"final_price_display":"12,500.00"`)
}

func TestHandlerResolveRejectsInvalidQuantity(t *testing.T) {
	h := newTestHandler(&stubSource{})

	req := resolveReq()
	req.Quantity = 0
	rec := postResolve(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid Quantity")
}

func TestHandlerResolveRejectsMissingFields(t *testing.T) {
	h := newTestHandler(&stubSource{})

	req := resolveReq()
	req.ClientID = ""
	rec := postResolve(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Validation Failed")
}

func TestHandlerResolveRejectsMalformedJSON(t *testing.T) {
	h := newTestHandler(&stubSource{})

	req := httptest.NewRequest(http.MethodPost, "/pricing/resolve", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
