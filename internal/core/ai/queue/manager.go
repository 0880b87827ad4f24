package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-keeper/internal/core/extractor"
	"recipe-keeper/internal/core/recipe"
	"recipe-keeper/internal/infrastructure/config"
	"recipe-keeper/internal/pkg/common"

	"go.uber.org/zap"
)

// Extractor 執行一次擷取
type Extractor interface {
	Extract(ctx context.Context, pageURL string, opts extractor.Options) (recipe.Recipe, error)
}

// Request 隊列請求
type Request struct {
	Context context.Context
	URL     string
	Options extractor.Options
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Recipe recipe.Recipe
	Error  error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	FailedCount    int `json:"failed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 擷取隊列管理器
type Manager struct {
	config    config.QueueConfig
	extractor Extractor
	queue     chan *Request
	done      chan struct{}
	wg        sync.WaitGroup
	processed int64
	failed    int64
	startOnce sync.Once
	closeOnce sync.Once
}

// NewManager 創建新的隊列管理器
func NewManager(cfg config.QueueConfig, extractor Extractor) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1
	}
	return &Manager{
		config:    cfg,
		extractor: extractor,
		queue:     make(chan *Request, cfg.MaxSize),
		done:      make(chan struct{}),
	}
}

// Start 啟動固定數量的 worker
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.Workers; i++ {
			m.wg.Add(1)
			go m.worker(i)
		}
		common.LogInfo("Extraction queue started",
			zap.Int("workers", m.config.Workers),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
	})
}

// Enqueue 將擷取請求加入隊列；隊列已滿時立即回傳 ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, pageURL string, opts extractor.Options) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, common.ErrServiceUnavailable
	default:
	}

	req := &Request{
		Context: ctx,
		URL:     pageURL,
		Options: opts,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return req.Result, nil
	default:
		common.LogWarn("Extraction queue is full", zap.Int("max_queue_size", m.config.MaxSize))
		return nil, common.ErrQueueFull
	}
}

// Submit 加入隊列並等待結果
func (m *Manager) Submit(ctx context.Context, pageURL string, opts extractor.Options) (recipe.Recipe, error) {
	results, err := m.Enqueue(ctx, pageURL, opts)
	if err != nil {
		return recipe.Recipe{}, err
	}
	select {
	case res := <-results:
		return res.Recipe, res.Error
	case <-ctx.Done():
		return recipe.Recipe{}, common.ErrRequestTimeout.Wrap(ctx.Err())
	}
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case req := <-m.queue:
			m.process(id, req)
		}
	}
}

func (m *Manager) process(worker int, req *Request) {
	var res Result
	if err := req.Context.Err(); err != nil {
		res.Error = common.ErrRequestTimeout.Wrap(err)
	} else {
		res.Recipe, res.Error = m.extractor.Extract(req.Context, req.URL, req.Options)
	}

	atomic.AddInt64(&m.processed, 1)
	if res.Error != nil {
		atomic.AddInt64(&m.failed, 1)
		common.LogDebug("Extraction job failed", zap.Int("worker", worker), zap.Error(res.Error))
	}
	req.Result <- res
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		FailedCount:    int(atomic.LoadInt64(&m.failed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close 停止 worker，尚未處理的請求回傳服務不可用
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		for {
			select {
			case req := <-m.queue:
				req.Result <- Result{Error: common.ErrServiceUnavailable}
			default:
				common.LogInfo("Extraction queue closed",
					zap.Int64("processed", atomic.LoadInt64(&m.processed)),
				)
				return
			}
		}
	})
}
