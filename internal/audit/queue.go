// Package audit ghi nhật ký bất biến cho mọi hành động trên báo giá.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrQueueClosed = errors.New("audit queue closed")

// Recorder nhận một bản ghi audit. Record chỉ trả về khi bản ghi đã được
// nhận vào hàng đợi (hoặc ctx bị hủy); không bao giờ âm thầm bỏ bản ghi.
type Recorder interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

const writeAttempts = 3

// Queue ghi audit qua một goroutine worker duy nhất, theo thứ tự nhận.
type Queue struct {
	store  store.AuditStore
	logger *zap.Logger
	ch     chan models.AuditEntry

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewQueue(st store.AuditStore, size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		store:  st,
		logger: logger,
		ch:     make(chan models.AuditEntry, size),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Record đưa bản ghi vào hàng đợi; chặn khi hàng đợi đầy.
func (q *Queue) Record(ctx context.Context, entry models.AuditEntry) error {
	if entry.AuditID == "" {
		entry.AuditID = "AUD-" + strings.ToUpper(uuid.New().String()[:8])
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- entry:
		metrics.AuditQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue audit entry: %w", ctx.Err())
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for entry := range q.ch {
		metrics.AuditQueueDepth.Dec()
		q.write(entry)
	}
}

func (q *Queue) write(entry models.AuditEntry) {
	var err error
	for attempt := 0; attempt < writeAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = q.store.Append(ctx, &entry)
		cancel()
		if err == nil {
			return
		}
		q.logger.Warn("audit.write_retry",
			zap.String("quotationID", entry.QuotationID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}

	metrics.AuditWriteFailures.Inc()
	q.logger.Error("audit.write_failed",
		zap.String("auditID", entry.AuditID),
		zap.String("quotationID", entry.QuotationID),
		zap.String("action", entry.Action),
		zap.Error(err))
}

// Close ngừng nhận bản ghi mới và chờ ghi hết hàng đợi.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain audit queue: %w", ctx.Err())
	}
}
