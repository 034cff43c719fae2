// Package quotation quản lý vòng đời yêu cầu báo giá gửi nhà cung cấp.
package quotation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/internal/audit"
	"pizzeria-backoffice-api-server/internal/drafting"
	"pizzeria-backoffice-api-server/internal/gemini"
	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidQuotation = errors.New("invalid quotation")

// Action tags ghi vào history và audit log.
const (
	ActionCreated          = "created"
	ActionRequestSent      = "request_sent"
	ActionAwaiting         = "awaiting_response"
	ActionResponseParsed   = "response_parsed"
	ActionManualReview     = "manual_review_required"
	ActionOrderConfirmed   = "order_confirmed"
	ActionShipped          = "shipped"
	ActionReceived         = "received"
	ActionCancelled        = "cancelled"
	ActionExpired          = "expired"
	ActionFollowUpDrafted  = "follow_up_drafted"
	ActionStatusChanged    = "status_changed"
	ActionNegotiationDraft = "negotiation_drafted"
)

// SystemActor là actor của các thao tác tự động.
const SystemActor = "system"

type EmailDrafter interface {
	QuotationRequest(ctx context.Context, q *models.Quotation) models.EmailDraft
	OrderConfirmation(ctx context.Context, q *models.Quotation) models.EmailDraft
	FollowUp(ctx context.Context, q *models.Quotation) models.EmailDraft
}

// Notifier được gọi sau mỗi lần báo giá được lưu.
type Notifier interface {
	QuotationUpdated(q *models.Quotation)
}

type PriceCacheInvalidator interface {
	Invalidate(ctx context.Context, supplierID string) error
}

type Deps struct {
	Store       store.QuotationStore
	Audit       audit.Recorder
	AuditLog    store.AuditStore
	Drafter     EmailDrafter
	AI          drafting.TextGenerator
	Notifier    Notifier
	PriceCache  PriceCacheInvalidator
	ExpireAfter time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

type Service struct {
	store       store.QuotationStore
	audit       audit.Recorder
	auditLog    store.AuditStore
	drafter     EmailDrafter
	parser      *ResponseParser
	notifier    Notifier
	priceCache  PriceCacheInvalidator
	expireAfter time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewService(d Deps) *Service {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.ExpireAfter <= 0 {
		d.ExpireAfter = 14 * 24 * time.Hour
	}
	return &Service{
		store:       d.Store,
		audit:       d.Audit,
		auditLog:    d.AuditLog,
		drafter:     d.Drafter,
		parser:      NewResponseParser(d.AI, d.Logger),
		notifier:    d.Notifier,
		priceCache:  d.PriceCache,
		expireAfter: d.ExpireAfter,
		logger:      d.Logger,
		now:         d.Now,
	}
}

type CreateInput struct {
	Supplier      models.SupplierRef `json:"supplier"`
	Items         []models.LineItem  `json:"items"`
	DeliveryTerms string             `json:"deliveryTerms"`
	PaymentTerms  string             `json:"paymentTerms"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.Supplier.SupplierID) == "" && strings.TrimSpace(in.Supplier.Name) == "" {
		return fmt.Errorf("%w: supplier is required", ErrInvalidQuotation)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidQuotation)
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return fmt.Errorf("%w: item %d has no product name", ErrInvalidQuotation, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %q quantity must be positive", ErrInvalidQuotation, item.ProductName)
		}
		if item.EstimatedUnitPrice < 0 {
			return fmt.Errorf("%w: item %q has a negative price", ErrInvalidQuotation, item.ProductName)
		}
	}
	return nil
}

// Create tạo báo giá ở trạng thái draft.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*models.Quotation, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()

	items := make([]models.LineItem, len(in.Items))
	copy(items, in.Items)
	for i := range items {
		items[i].QuotedUnitPrice = nil
		items[i].QuotedAvailability = nil
	}

	q := &models.Quotation{
		QuotationID:   fmt.Sprintf("QUO-%s", strings.ToUpper(uuid.New().String()[:8])),
		Supplier:      in.Supplier,
		Items:         items,
		Status:        models.StatusDraft,
		DeliveryTerms: in.DeliveryTerms,
		PaymentTerms:  in.PaymentTerms,
		CreatedBy:     actor,
		CreatedAt:     now,
		UpdatedAt:     now,
		History: []models.HistoryEntry{{
			Status:    models.StatusDraft,
			Timestamp: now,
			Actor:     actor,
			Action:    ActionCreated,
		}},
	}
	q.RecalculateTotals()

	if err := s.store.Save(ctx, q); err != nil {
		return nil, fmt.Errorf("save quotation: %w", err)
	}
	s.recordAudit(ctx, q, q.History[0])
	s.notify(q)
	return q, nil
}

func (s *Service) Get(ctx context.Context, quotationID string) (*models.Quotation, error) {
	return s.store.Get(ctx, quotationID)
}

func (s *Service) List(ctx context.Context, filter store.QuotationFilter) ([]models.Quotation, error) {
	return s.store.List(ctx, filter)
}

// Transition là thao tác chuyển trạng thái tổng quát.
func (s *Service) Transition(ctx context.Context, quotationID string, target models.QuotationStatus, actor, action string, metadata map[string]interface{}) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if action == "" {
		action = ActionStatusChanged
	}
	if err := s.apply(ctx, q, target, actor, action, metadata); err != nil {
		return nil, err
	}
	return q, nil
}

// apply kiểm tra, gộp metadata, thêm history, lưu rồi ghi audit.
func (s *Service) apply(ctx context.Context, q *models.Quotation, target models.QuotationStatus, actor, action string, metadata map[string]interface{}) error {
	from := q.Status
	if !CanTransition(from, target) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, target)
	}
	if err := mergeMetadata(q, metadata); err != nil {
		return err
	}

	now := s.now().UTC()
	entry := models.HistoryEntry{
		Status:         target,
		PreviousStatus: from,
		Timestamp:      now,
		Actor:          actor,
		Action:         action,
		Metadata:       metadata,
	}
	q.Status = target
	q.History = append(q.History, entry)
	q.UpdatedAt = now

	if err := s.store.Save(ctx, q); err != nil {
		return fmt.Errorf("save quotation: %w", err)
	}
	metrics.QuotationTransitions.WithLabelValues(string(from), string(target)).Inc()
	s.logger.Info("quotation.transition",
		zap.String("quotationID", q.QuotationID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", actor),
		zap.String("action", action))

	s.recordAudit(ctx, q, entry)
	s.notify(q)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, q *models.Quotation, entry models.HistoryEntry) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, models.AuditEntry{
		QuotationID:    q.QuotationID,
		Action:         entry.Action,
		PreviousStatus: entry.PreviousStatus,
		Status:         entry.Status,
		Actor:          entry.Actor,
		Timestamp:      entry.Timestamp,
		Metadata:       entry.Metadata,
	})
	if err != nil {
		s.logger.Error("audit.enqueue_failed", zap.String("quotationID", q.QuotationID), zap.Error(err))
	}
}

func (s *Service) notify(q *models.Quotation) {
	if s.notifier != nil {
		s.notifier.QuotationUpdated(q)
	}
}

// SendRequest soạn email yêu cầu báo giá và chuyển draft -> pending.
func (s *Service) SendRequest(ctx context.Context, quotationID, actor string) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(q.Status, models.StatusPending) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, q.Status, models.StatusPending)
	}
	s.attachEmail(ctx, q, EmailDrafter.QuotationRequest)
	if err := s.apply(ctx, q, models.StatusPending, actor, ActionRequestSent, emailMetadata(q)); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) MarkAwaiting(ctx context.Context, quotationID, actor string) (*models.Quotation, error) {
	return s.Transition(ctx, quotationID, models.StatusAwaiting, actor, ActionAwaiting, nil)
}

// ProcessSupplierResponse phân tích email phản hồi. Lỗi AI không làm
// thao tác thất bại: báo giá chuyển sang awaiting và cần duyệt tay.
func (s *Service) ProcessSupplierResponse(ctx context.Context, quotationID, emailBody, actor string) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(emailBody) == "" {
		return nil, fmt.Errorf("%w: empty supplier response", ErrInvalidQuotation)
	}
	if !CanTransition(q.Status, models.StatusQuoted) {
		return nil, fmt.Errorf("%w: cannot process a response in status %s", ErrIllegalTransition, q.Status)
	}

	resp, perr := s.parser.Parse(ctx, emailBody, q.ItemNames())
	if perr != nil {
		metrics.AIFallbacks.WithLabelValues("response_parser").Inc()
		s.logger.Warn("quotation.response_parse_failed", zap.String("quotationID", q.QuotationID), zap.Error(perr))
		if err := s.apply(ctx, q, models.StatusAwaiting, actor, ActionManualReview, map[string]interface{}{
			"needsManualReview": true,
			"supplierNotes":     emailBody,
			"reason":            perr.Error(),
		}); err != nil {
			return nil, err
		}
		return q, nil
	}

	matched := ApplyResponse(q, resp)
	meta := map[string]interface{}{
		"matchedItems":      matched,
		"needsManualReview": matched == 0,
	}
	if t, err := parseDate(resp.DeliveryDate); err == nil && t != nil {
		meta["deliveryDate"] = t.Format("2006-01-02")
	}
	if resp.DeliveryTerms != "" {
		meta["deliveryTerms"] = resp.DeliveryTerms
	}
	if resp.PaymentTerms != "" {
		meta["paymentTerms"] = resp.PaymentTerms
	}
	if resp.Notes != "" {
		meta["supplierNotes"] = resp.Notes
	}
	if err := s.apply(ctx, q, models.StatusQuoted, actor, ActionResponseParsed, meta); err != nil {
		return nil, err
	}
	return q, nil
}

// ConfirmOrder soạn email xác nhận và chuyển quoted -> ordered.
func (s *Service) ConfirmOrder(ctx context.Context, quotationID, actor string) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusQuoted {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, q.Status, models.StatusOrdered)
	}
	s.attachEmail(ctx, q, EmailDrafter.OrderConfirmation)
	if err := s.apply(ctx, q, models.StatusOrdered, actor, ActionOrderConfirmed, emailMetadata(q)); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) MarkShipped(ctx context.Context, quotationID, actor string, metadata map[string]interface{}) (*models.Quotation, error) {
	return s.Transition(ctx, quotationID, models.StatusShipped, actor, ActionShipped, metadata)
}

// MarkReceived kết thúc đơn; giá của báo giá trở thành lịch sử giá mới
// nên cache lịch sử của nhà cung cấp bị xóa.
func (s *Service) MarkReceived(ctx context.Context, quotationID, actor string) (*models.Quotation, error) {
	q, err := s.Transition(ctx, quotationID, models.StatusReceived, actor, ActionReceived, nil)
	if err != nil {
		return nil, err
	}
	if s.priceCache != nil && q.Supplier.SupplierID != "" {
		if err := s.priceCache.Invalidate(ctx, q.Supplier.SupplierID); err != nil {
			s.logger.Warn("quotation.price_cache_invalidate_failed", zap.String("supplierID", q.Supplier.SupplierID), zap.Error(err))
		}
	}
	return q, nil
}

func (s *Service) Cancel(ctx context.Context, quotationID, actor, reason string) (*models.Quotation, error) {
	var meta map[string]interface{}
	if reason != "" {
		meta = map[string]interface{}{"reason": reason}
	}
	return s.Transition(ctx, quotationID, models.StatusCancelled, actor, ActionCancelled, meta)
}

// ExpireStale chuyển các báo giá pending/awaiting/quoted không cập nhật
// quá expireAfter sang expired. Trả về số báo giá đã hết hạn.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.expireAfter)
	stale, err := s.store.List(ctx, store.QuotationFilter{
		Statuses:      []models.QuotationStatus{models.StatusPending, models.StatusAwaiting, models.StatusQuoted},
		UpdatedBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("list stale quotations: %w", err)
	}

	expired := 0
	for i := range stale {
		q := &stale[i]
		if err := s.apply(ctx, q, models.StatusExpired, SystemActor, ActionExpired, map[string]interface{}{
			"expireAfter": s.expireAfter.String(),
		}); err != nil {
			s.logger.Warn("quotation.expire_failed", zap.String("quotationID", q.QuotationID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// DraftFollowUp soạn email nhắc nhà cung cấp. Không đổi trạng thái,
// không thêm history; chỉ ghi audit.
func (s *Service) DraftFollowUp(ctx context.Context, quotationID, actor string) (*models.Quotation, error) {
	q, err := s.store.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != models.StatusPending && q.Status != models.StatusAwaiting {
		return nil, fmt.Errorf("%w: follow-up needs pending or awaiting, got %s", ErrIllegalTransition, q.Status)
	}
	s.attachEmail(ctx, q, EmailDrafter.FollowUp)
	if err := s.store.Save(ctx, q); err != nil {
		return nil, fmt.Errorf("save quotation: %w", err)
	}
	s.recordAudit(ctx, q, models.HistoryEntry{
		Status:         q.Status,
		PreviousStatus: q.Status,
		Timestamp:      s.now().UTC(),
		Actor:          actor,
		Action:         ActionFollowUpDrafted,
		Metadata:       emailMetadata(q),
	})
	s.notify(q)
	return q, nil
}

// manualReviewReason chỉ lưu loại lỗi; lỗi gốc có thể chứa URL hoặc nội dung nhạy cảm.
func manualReviewReason(err error) string {
	switch {
	case errors.Is(err, ErrParserUnavailable), errors.Is(err, gemini.ErrNotConfigured):
		return "ai not configured"
	case errors.Is(err, gemini.ErrNoJSON), errors.Is(err, gemini.ErrEmptyResponse), errors.Is(err, gemini.ErrMissingKey),
		errors.Is(err, gemini.ErrInvalidJSON):
		return "unreadable ai response"
	default:
		return "ai unavailable"
	}
}

// AttachNegotiationEmail lưu email đàm phán đã soạn vào báo giá.
func (s *Service) AttachNegotiationEmail(ctx context.Context, q *models.Quotation, email models.EmailDraft, actor string) error {
	q.LastEmail = &email
	if err := s.store.Save(ctx, q); err != nil {
		return fmt.Errorf("save quotation: %w", err)
	}
	s.recordAudit(ctx, q, models.HistoryEntry{
		Status:         q.Status,
		PreviousStatus: q.Status,
		Timestamp:      s.now().UTC(),
		Actor:          actor,
		Action:         ActionNegotiationDraft,
		Metadata:       map[string]interface{}{"emailSubject": email.Subject},
	})
	s.notify(q)
	return nil
}

// AuditTrail trả về nhật ký audit của báo giá.
func (s *Service) AuditTrail(ctx context.Context, quotationID string) ([]models.AuditEntry, error) {
	if _, err := s.store.Get(ctx, quotationID); err != nil {
		return nil, err
	}
	if s.auditLog == nil {
		return []models.AuditEntry{}, nil
	}
	return s.auditLog.ListByQuotation(ctx, quotationID)
}

func emailMetadata(q *models.Quotation) map[string]interface{} {
	if q.LastEmail == nil {
		return nil
	}
	return map[string]interface{}{
		"emailKind":    q.LastEmail.Kind,
		"emailSubject": q.LastEmail.Subject,
		"aiGenerated":  q.LastEmail.AIGenerated,
	}
}

func (s *Service) attachEmail(ctx context.Context, q *models.Quotation, draft func(EmailDrafter, context.Context, *models.Quotation) models.EmailDraft) {
	if s.drafter == nil {
		return
	}
	email := draft(s.drafter, ctx, q)
	q.LastEmail = &email
}
