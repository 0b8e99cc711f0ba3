package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// 供應商名稱
const (
	ProviderSpeech = "speech"
	ProviderLLM    = "llm"
)

// Status 單一供應商的併發狀態
type Status struct {
	Provider       string `json:"provider"`
	InFlight       int64  `json:"in_flight"`
	MaxConcurrency int64  `json:"max_concurrency"`
	ProcessedCount int64  `json:"processed_count"`
}

type slot struct {
	sem       *semaphore.Weighted
	limit     int64
	inFlight  int64
	processed int64
}

// Manager 每個供應商一個 semaphore，避免自己觸發上游限流
type Manager struct {
	mu    sync.RWMutex
	slots map[string]*slot
}

// NewManager 創建併發管理器，limits 為供應商名稱對應的上限
func NewManager(limits map[string]int) *Manager {
	m := &Manager{slots: make(map[string]*slot, len(limits))}
	for name, limit := range limits {
		if limit <= 0 {
			limit = 1
		}
		m.slots[name] = &slot{
			sem:   semaphore.NewWeighted(int64(limit)),
			limit: int64(limit),
		}
	}
	return m
}

// Acquire 取得一個名額，ctx 結束時放棄等待。回傳的 release 必須呼叫一次
func (m *Manager) Acquire(ctx context.Context, provider string) (func(), error) {
	if m == nil {
		return func() {}, nil
	}

	m.mu.RLock()
	s, ok := m.slots[provider]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		common.LogWarn("Gave up waiting for provider slot",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil, err
	}
	atomic.AddInt64(&s.inFlight, 1)

	var once sync.Once
	return func() {
		once.Do(func() {
			atomic.AddInt64(&s.inFlight, -1)
			atomic.AddInt64(&s.processed, 1)
			s.sem.Release(1)
		})
	}, nil
}

// GetQueueStatus 獲取各供應商狀態，依名稱排序
func (m *Manager) GetQueueStatus() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]Status, 0, len(m.slots))
	for name, s := range m.slots {
		statuses = append(statuses, Status{
			Provider:       name,
			InFlight:       atomic.LoadInt64(&s.inFlight),
			MaxConcurrency: s.limit,
			ProcessedCount: atomic.LoadInt64(&s.processed),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Provider < statuses[j].Provider })
	return statuses
}
