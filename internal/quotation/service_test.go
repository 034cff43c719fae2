package quotation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *recordedAudit) Record(_ context.Context, e models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordedAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type scriptedAI struct {
	reply string
	err   error
}

func (s *scriptedAI) GenerateText(context.Context, string) (string, error) {
	return s.reply, s.err
}

type countingNotifier struct{ n int }

func (c *countingNotifier) QuotationUpdated(*models.Quotation) { c.n++ }

type invalidations struct{ suppliers []string }

func (i *invalidations) Invalidate(_ context.Context, supplierID string) error {
	i.suppliers = append(i.suppliers, supplierID)
	return nil
}

type fixture struct {
	svc      *Service
	mem      *store.Memory
	audit    *recordedAudit
	notifier *countingNotifier
	cache    *invalidations
	ai       *scriptedAI
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		mem:      store.NewMemory(),
		audit:    &recordedAudit{},
		notifier: &countingNotifier{},
		cache:    &invalidations{},
		ai:       &scriptedAI{err: errors.New("offline")},
		clock:    time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(Deps{
		Store:       f.mem,
		Audit:       f.audit,
		AuditLog:    f.mem,
		Drafter:     drafting.NewDrafter(nil, "Pizzeria Test", nil),
		AI:          f.ai,
		Notifier:    f.notifier,
		PriceCache:  f.cache,
		ExpireAfter: 7 * 24 * time.Hour,
		Now:         func() time.Time { return f.clock },
	})
	return f
}

func sampleInput() CreateInput {
	return CreateInput{
		Supplier: models.SupplierRef{SupplierID: "SUP-1", Name: "Caseificio Rossi", Email: "ordini@rossi.it"},
		Items: []models.LineItem{
			{ProductID: "P1", ProductName: "Mozzarella", Quantity: 10, Unit: "kg", EstimatedUnitPrice: 5.00},
			{ProductID: "P2", ProductName: "Farina 00", Quantity: 20, Unit: "kg", EstimatedUnitPrice: 2.00},
		},
	}
}

func assertHistoryChain(t *testing.T, q *models.Quotation) {
	t.Helper()
	for i := 1; i < len(q.History); i++ {
		assert.Equal(t, q.History[i-1].Status, q.History[i].PreviousStatus, "history entry %d", i)
	}
	require.NotEmpty(t, q.History)
	assert.Equal(t, q.Status, q.History[len(q.History)-1].Status)
}

func TestCreate_ComputesEstimatedTotal(t *testing.T) {
	f := newFixture(t)
	q, err := f.svc.Create(context.Background(), sampleInput(), "chef@pizzeria.test")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, q.Status)
	assert.Equal(t, 90.00, q.EstimatedTotal)
	assert.Nil(t, q.QuotedTotal)
	assert.Regexp(t, `^QUO-[0-9A-F]{8}$`, q.QuotationID)
	require.Len(t, q.History, 1)
	assert.Equal(t, ActionCreated, q.History[0].Action)
	assert.Equal(t, []string{ActionCreated}, f.audit.actions())
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	in := sampleInput()
	in.Items[1].Quantity = 0
	_, err := f.svc.Create(context.Background(), in, "chef")
	assert.ErrorIs(t, err, ErrInvalidQuotation)

	_, err = f.svc.Create(context.Background(), CreateInput{Supplier: in.Supplier}, "chef")
	assert.ErrorIs(t, err, ErrInvalidQuotation)
}

func TestWorkflow_HappyPathKeepsHistoryChain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ai.err = nil
	f.ai.reply = `Here you go: {"items": [{"name": "mozzarella fior di latte", "unitPrice": 5.5, "available": true},
		{"name": "FARINA", "unitPrice": 1.8, "available": true}], "deliveryDate": "2026-05-10",
		"deliveryTerms": "Tuesday morning", "paymentTerms": "30 days"}`

	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	q, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, q.Status)
	require.NotNil(t, q.LastEmail)
	assert.Equal(t, drafting.KindRequest, q.LastEmail.Kind)

	q, err = f.svc.MarkAwaiting(ctx, q.QuotationID, "chef")
	require.NoError(t, err)

	q, err = f.svc.ProcessSupplierResponse(ctx, q.QuotationID, "Ciao, prezzi: mozzarella 5.50, farina 1.80", "chef")
	require.NoError(t, err)
	assert.Equal(t, models.StatusQuoted, q.Status)
	require.NotNil(t, q.QuotedTotal)
	assert.Equal(t, 91.00, *q.QuotedTotal)
	assert.Equal(t, "Tuesday morning", q.DeliveryTerms)
	require.NotNil(t, q.DeliveryDate)
	assert.Equal(t, 10, q.DeliveryDate.Day())
	assert.False(t, q.NeedsManualReview)

	q, err = f.svc.ConfirmOrder(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	assert.Equal(t, drafting.KindConfirmation, q.LastEmail.Kind)

	_, err = f.svc.MarkShipped(ctx, q.QuotationID, "chef", nil)
	require.NoError(t, err)
	q, err = f.svc.MarkReceived(ctx, q.QuotationID, "chef")
	require.NoError(t, err)

	assert.Equal(t, models.StatusReceived, q.Status)
	assert.Len(t, q.History, 7)
	assertHistoryChain(t, q)
	assert.Equal(t, []string{"SUP-1"}, f.cache.suppliers)
	assert.Len(t, f.audit.actions(), 7)
	assert.Equal(t, 7, f.notifier.n)

	stored, err := f.mem.Get(ctx, q.QuotationID)
	require.NoError(t, err)
	assert.Len(t, stored.History, 7)
}

func TestProcessSupplierResponse_FallsBackToManualReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	require.NoError(t, err)

	f.ai.err = nil
	f.ai.reply = "Sorry, I cannot help with that."
	raw := "Buongiorno, mozzarella a 5,50 al kg."
	q, err = f.svc.ProcessSupplierResponse(ctx, q.QuotationID, raw, "chef")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAwaiting, q.Status)
	assert.True(t, q.NeedsManualReview)
	assert.Equal(t, raw, q.SupplierNotes)
	assert.Nil(t, q.QuotedTotal)
	assert.Equal(t, ActionManualReview, q.History[len(q.History)-1].Action)
	assertHistoryChain(t, q)
}

func TestProcessSupplierResponse_UnreachableAIKeepsKeyOutOfHistory(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	f := newFixture(t)
	f.svc.parser = NewResponseParser(gemini.NewClient(config.GeminiConfig{
		APIKey:  "SECRET-KEY-123",
		BaseURL: srv.URL,
		Model:   "m",
	}, nil, nil), nil)

	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	require.NoError(t, err)

	q, err = f.svc.ProcessSupplierResponse(ctx, q.QuotationID, "Prezzi in allegato", "chef")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaiting, q.Status)

	last := q.History[len(q.History)-1]
	assert.Equal(t, "ai unavailable", last.Metadata["reason"])
	for _, h := range q.History {
		assert.NotContains(t, fmt.Sprint(h.Metadata), "SECRET-KEY-123")
	}
	for _, e := range f.audit.entries {
		assert.NotContains(t, fmt.Sprint(e.Metadata), "SECRET-KEY-123")
	}
}

func TestManualReviewReason(t *testing.T) {
	assert.Equal(t, "ai not configured", manualReviewReason(ErrParserUnavailable))
	assert.Equal(t, "ai not configured", manualReviewReason(fmt.Errorf("generate: %w", gemini.ErrNotConfigured)))
	assert.Equal(t, "unreadable ai response", manualReviewReason(gemini.ErrNoJSON))
	assert.Equal(t, "unreadable ai response", manualReviewReason(fmt.Errorf("%w: %q", gemini.ErrMissingKey, "items")))
	assert.Equal(t, "ai unavailable", manualReviewReason(errors.New("dial tcp: connection refused")))
}

func TestWorkflow_WithoutDrafterSkipsEmails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.drafter = nil

	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)
	q, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, q.Status)
	assert.Nil(t, q.LastEmail)

	q, err = f.svc.DraftFollowUp(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	assert.Nil(t, q.LastEmail)

	f.ai.err = nil
	f.ai.reply = `{"items":[{"name":"Mozzarella","unitPrice":5.5,"available":true}]}`
	_, err = f.svc.ProcessSupplierResponse(ctx, q.QuotationID, "mozzarella 5.50", "chef")
	require.NoError(t, err)

	q, err = f.svc.ConfirmOrder(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOrdered, q.Status)
	assert.Nil(t, q.LastEmail)
}

func TestTransition_RejectsIllegalJump(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, q.QuotationID, models.StatusReceived, "chef", "", nil)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	stored, err := f.mem.Get(ctx, q.QuotationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Status)
	assert.Len(t, stored.History, 1)

	_, err = f.svc.Transition(ctx, "QUO-MISSING", models.StatusPending, "chef", "", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransition_MergesMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	q, err = f.svc.Transition(ctx, q.QuotationID, models.StatusPending, "chef", "", map[string]interface{}{
		"deliveryTerms": "Door delivery",
		"paymentTerms":  "Cash",
		"deliveryDate":  "2026-06-01",
		"ignored":       42,
	})
	require.NoError(t, err)
	assert.Equal(t, "Door delivery", q.DeliveryTerms)
	assert.Equal(t, "Cash", q.PaymentTerms)
	require.NotNil(t, q.DeliveryDate)
	assert.Equal(t, time.June, q.DeliveryDate.Month())
	assert.Equal(t, ActionStatusChanged, q.History[1].Action)
	assert.Equal(t, 42, q.History[1].Metadata["ignored"])

	_, err = f.svc.Transition(ctx, q.QuotationID, models.StatusAwaiting, "chef", "", map[string]interface{}{
		"deliveryDate": "next week",
	})
	assert.ErrorIs(t, err, ErrInvalidQuotation)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	old, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, old.QuotationID, "chef")
	require.NoError(t, err)
	draft, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	f.clock = f.clock.Add(8 * 24 * time.Hour)
	fresh, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)
	_, err = f.svc.SendRequest(ctx, fresh.QuotationID, "chef")
	require.NoError(t, err)

	n, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.mem.Get(ctx, old.QuotationID)
	assert.Equal(t, models.StatusExpired, got.Status)
	assert.Equal(t, SystemActor, got.History[len(got.History)-1].Actor)
	got, _ = f.mem.Get(ctx, draft.QuotationID)
	assert.Equal(t, models.StatusDraft, got.Status)
	got, _ = f.mem.Get(ctx, fresh.QuotationID)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestDraftFollowUp_AuditOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	_, err = f.svc.DraftFollowUp(ctx, q.QuotationID, "chef")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	require.NoError(t, err)
	q, err = f.svc.DraftFollowUp(ctx, q.QuotationID, "chef")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, q.Status)
	assert.Len(t, q.History, 2)
	assert.Equal(t, drafting.KindFollowUp, q.LastEmail.Kind)
	assert.Equal(t, []string{ActionCreated, ActionRequestSent, ActionFollowUpDrafted}, f.audit.actions())
}

func TestCancel_TerminalStaysTerminal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	q, err := f.svc.Create(ctx, sampleInput(), "chef")
	require.NoError(t, err)

	q, err = f.svc.Cancel(ctx, q.QuotationID, "chef", "menu changed")
	require.NoError(t, err)
	assert.Equal(t, "menu changed", q.History[1].Metadata["reason"])

	_, err = f.svc.SendRequest(ctx, q.QuotationID, "chef")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestAuditTrail_UnknownQuotation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.AuditTrail(context.Background(), "QUO-NOPE")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
