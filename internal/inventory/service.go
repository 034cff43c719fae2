// Package inventory quản lý tồn kho: bản làm việc trên Redis, bản sao
// trên MongoDB được đồng bộ có debounce.
package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pizzeria-backoffice-api-server/internal/models"
	"pizzeria-backoffice-api-server/internal/store"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const workingKey = "inventory:working"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidBackup     = errors.New("invalid inventory backup")
)

type Service struct {
	redis      *redis.Client
	remote     store.InventoryStore
	mirror     *Mirror
	windowDays int
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	local *models.InventorySnapshot
}

type Options struct {
	Redis          *redis.Client
	Remote         store.InventoryStore
	MirrorDebounce time.Duration
	WindowDays     int
	Logger         *zap.Logger
	Now            func() time.Time
}

func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	return &Service{
		redis:      opts.Redis,
		remote:     opts.Remote,
		mirror:     NewMirror(opts.Remote, opts.MirrorDebounce, opts.Logger),
		windowDays: opts.WindowDays,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Snapshot trả về trạng thái kho hiện tại. Bản làm việc trống thì nạp từ store.
func (s *Service) Snapshot(ctx context.Context) (*models.InventorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Service) loadLocked(ctx context.Context) (*models.InventorySnapshot, error) {
	snap, err := s.readWorking(ctx)
	if err != nil {
		return nil, err
	}
	if snap != nil {
		return snap, nil
	}

	snap, err = s.remote.LoadInventory(ctx)
	if errors.Is(err, store.ErrNotFound) {
		snap = &models.InventorySnapshot{Items: []models.Product{}, Categories: []string{}}
	} else if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	if err := s.writeWorking(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Service) readWorking(ctx context.Context) (*models.InventorySnapshot, error) {
	if s.redis == nil {
		if s.local == nil {
			return nil, nil
		}
		return cloneSnapshot(s.local), nil
	}
	data, err := s.redis.Get(ctx, workingKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read working copy: %w", err)
	}
	var snap models.InventorySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode working copy: %w", err)
	}
	return &snap, nil
}

func (s *Service) writeWorking(ctx context.Context, snap *models.InventorySnapshot) error {
	if s.redis == nil {
		s.local = cloneSnapshot(snap)
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, workingKey, data, 0).Err(); err != nil {
		return fmt.Errorf("write working copy: %w", err)
	}
	return nil
}

// save ghi bản làm việc và hẹn đồng bộ lên store.
func (s *Service) saveLocked(ctx context.Context, snap *models.InventorySnapshot) error {
	snap.Categories = mergeCategories(snap.Categories, store.CategoriesOf(snap.Items))
	snap.UpdatedAt = s.now().UTC()
	if err := s.writeWorking(ctx, snap); err != nil {
		return err
	}
	s.mirror.Schedule(cloneSnapshot(snap))
	return nil
}

// update nạp kho, áp fn rồi lưu.
func (s *Service) update(ctx context.Context, fn func(snap *models.InventorySnapshot) error) (*models.InventorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadLocked(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(snap); err != nil {
		return nil, err
	}
	if err := s.saveLocked(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func findProduct(snap *models.InventorySnapshot, productID string) int {
	for i := range snap.Items {
		if snap.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// UpsertProduct thêm hoặc sửa sản phẩm. Lịch sử xuất nhập không bị ghi đè.
func (s *Service) UpsertProduct(ctx context.Context, p models.Product) (*models.Product, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.CurrentStock < 0 || p.MinStock < 0 || p.UnitCost < 0 {
		return nil, fmt.Errorf("%w: stock and cost must not be negative", ErrInvalidProduct)
	}
	if p.ProductID == "" {
		p.ProductID = fmt.Sprintf("PRD-%s", strings.ToUpper(uuid.New().String()[:8]))
	}

	var saved models.Product
	_, err := s.update(ctx, func(snap *models.InventorySnapshot) error {
		p.UpdatedAt = s.now().UTC()
		if i := findProduct(snap, p.ProductID); i >= 0 {
			p.Movements = snap.Items[i].Movements
			snap.Items[i] = p
		} else {
			p.Movements = nil
			snap.Items = append(snap.Items, p)
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Consume trừ tồn kho và ghi nhận một lần tiêu thụ.
func (s *Service) Consume(ctx context.Context, productID string, quantity float64, reason string) (*models.Product, error) {
	return s.move(ctx, productID, -quantity, reason)
}

// Receive cộng tồn kho khi nhận hàng.
func (s *Service) Receive(ctx context.Context, productID string, quantity float64, reason string) (*models.Product, error) {
	return s.move(ctx, productID, quantity, reason)
}

func (s *Service) move(ctx context.Context, productID string, delta float64, reason string) (*models.Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidProduct)
	}
	var saved models.Product
	_, err := s.update(ctx, func(snap *models.InventorySnapshot) error {
		i := findProduct(snap, productID)
		if i < 0 {
			return ErrProductNotFound
		}
		p := &snap.Items[i]
		if p.CurrentStock+delta < 0 {
			return fmt.Errorf("%w: %s has %g %s", ErrInsufficientStock, p.Name, p.CurrentStock, p.Unit)
		}
		now := s.now().UTC()
		p.CurrentStock += delta
		p.Movements = append(p.Movements, models.StockMovement{Date: now, Quantity: delta, Reason: reason})
		p.UpdatedAt = now
		saved = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// LowStock trả về sản phẩm có tồn ≤ mức tối thiểu, kèm tốc độ tiêu thụ
// trung bình ngày trong cửa sổ windowDays, sắp theo số ngày còn lại.
func (s *Service) LowStock(ctx context.Context) ([]models.LowStockProduct, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return lowStock(snap.Items, s.now().UTC(), s.windowDays), nil
}

func lowStock(items []models.Product, now time.Time, windowDays int) []models.LowStockProduct {
	since := now.AddDate(0, 0, -windowDays)
	result := []models.LowStockProduct{}
	for _, p := range items {
		if p.CurrentStock > p.MinStock {
			continue
		}
		var consumed float64
		for _, m := range p.Movements {
			if m.Quantity < 0 && !m.Date.Before(since) {
				consumed += -m.Quantity
			}
		}
		entry := models.LowStockProduct{Product: p, DailyConsumption: consumed / float64(windowDays)}
		if entry.DailyConsumption > 0 {
			days := p.CurrentStock / entry.DailyConsumption
			entry.DaysUntilStockout = &days
		}
		result = append(result, entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].DaysUntilStockout, result[j].DaysUntilStockout
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return result[i].Name < result[j].Name
	})
	return result
}

// SetCategories lưu thứ tự danh mục do người dùng sắp xếp. Danh mục còn
// sản phẩm nhưng thiếu trong order được nối vào cuối.
func (s *Service) SetCategories(ctx context.Context, order []string) ([]string, error) {
	for _, c := range order {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("%w: empty category name", ErrInvalidProduct)
		}
	}
	snap, err := s.update(ctx, func(snap *models.InventorySnapshot) error {
		snap.Categories = append([]string(nil), order...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), snap.Categories...), nil
}

// Flush đẩy ngay bản chờ đồng bộ, dùng khi tắt server.
func (s *Service) Flush(ctx context.Context) error {
	return s.mirror.Flush(ctx)
}

func mergeCategories(lists ...[]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, list := range lists {
		for _, c := range list {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func cloneSnapshot(snap *models.InventorySnapshot) *models.InventorySnapshot {
	out := *snap
	out.Items = make([]models.Product, len(snap.Items))
	for i, p := range snap.Items {
		p.Movements = append([]models.StockMovement(nil), p.Movements...)
		out.Items[i] = p
	}
	out.Categories = append([]string(nil), snap.Categories...)
	return &out
}
