package inventory

import (
	"context"
	"sync"
	"time"

	"pizzeria-backoffice-api-server/internal/metrics"
	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"go.uber.org/zap"
)

// Mirror gom các lần sửa kho trong khoảng delay rồi mới đẩy bản mới nhất
// lên store từ xa. Đẩy lỗi thì giữ lại bản đó và hẹn lần sau.
type Mirror struct {
	remote store.InventoryStore
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *models.InventorySnapshot
	pushing sync.Mutex
}

func NewMirror(remote store.InventoryStore, delay time.Duration, logger *zap.Logger) *Mirror {
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{remote: remote, delay: delay, logger: logger}
}

// Schedule thay bản chờ bằng snap và đặt lại hẹn giờ.
func (m *Mirror) Schedule(snap *models.InventorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = snap
	m.armLocked()
}

func (m *Mirror) armLocked() {
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.push(ctx)
	})
}

// Flush đẩy bản chờ ngay lập tức.
func (m *Mirror) Flush(ctx context.Context) error {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()
	return m.push(ctx)
}

func (m *Mirror) push(ctx context.Context) error {
	m.pushing.Lock()
	defer m.pushing.Unlock()

	m.mu.Lock()
	snap := m.pending
	m.pending = nil
	m.mu.Unlock()
	if snap == nil {
		return nil
	}

	if err := m.remote.SaveInventory(ctx, snap); err != nil {
		metrics.MirrorPushes.WithLabelValues("error").Inc()
		m.logger.Warn("inventory.mirror_failed", zap.Int("items", len(snap.Items)), zap.Error(err))
		m.mu.Lock()
		if m.pending == nil {
			m.pending = snap
			m.armLocked()
		}
		m.mu.Unlock()
		return err
	}
	metrics.MirrorPushes.WithLabelValues("ok").Inc()
	m.logger.Debug("inventory.mirror_pushed", zap.Int("items", len(snap.Items)))
	return nil
}
