package ingest

import (
	"sync"
	"time"

	"Bside/logger"
)

// Manager 管理内存中的摄取批次会话
// 批次不跨会话持久化：页面会话结束或空闲超时后整个批次被回收。
type Manager struct {
	mu      sync.Mutex
	batches map[string]*session
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

type session struct {
	batch    *Batch
	lastSeen time.Time
}

// NewManager 创建批次管理器并启动空闲回收
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	m := &Manager{
		batches: make(map[string]*session),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create 新建一个批次会话
func (m *Manager) Create(opts Options) *Batch {
	b := NewBatch(opts)
	m.mu.Lock()
	m.batches[b.ID()] = &session{batch: b, lastSeen: time.Now()}
	m.mu.Unlock()

	logger.Info("创建摄取批次", logger.String("batchId", b.ID()))
	return b
}

// Get 按ID取批次并刷新活跃时间，不存在时返回nil
func (m *Manager) Get(id string) *Batch {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.batches[id]
	if !ok {
		return nil
	}
	s.lastSeen = time.Now()
	return s.batch
}

// Remove 销毁批次会话
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.batches, id)
	m.mu.Unlock()
}

// Snapshots 返回所有在管批次的快照，供状态页聚合
func (m *Manager) Snapshots() []Snapshot {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.batches))
	for _, s := range m.batches {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	snaps := make([]Snapshot, 0, len(sessions))
	for _, s := range sessions {
		snaps = append(snaps, s.batch.Snapshot())
	}
	return snaps
}

// Close 停止空闲回收
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

// janitor 定期回收空闲批次；运行中的批次不回收
func (m *Manager) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.ttl)
			m.mu.Lock()
			for id, s := range m.batches {
				if s.lastSeen.Before(cutoff) && !s.batch.Processing() {
					delete(m.batches, id)
					logger.Info("回收空闲摄取批次", logger.String("batchId", id))
				}
			}
			m.mu.Unlock()
		}
	}
}
