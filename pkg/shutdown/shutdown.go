package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/betbot/gosra/pkg/logger"
)

// Handler 关闭处理函数，应在 ctx 结束前返回
type Handler func(ctx context.Context) error

type callback struct {
	name    string
	handler Handler
}

// Manager 优雅关闭管理器
type Manager struct {
	callbacks []callback
	mu        sync.Mutex
}

// NewManager 创建新的关闭管理器
func NewManager() *Manager {
	return &Manager{}
}

// OnShutdown 注册关闭回调
func (m *Manager) OnShutdown(name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback{name: name, handler: handler})
}

// Shutdown 并发执行所有关闭回调（阻塞调用），返回第一个错误
// ctx 应该是一个带超时的 context，避免无限等待
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	callbacks := append([]callback(nil), m.callbacks...)
	m.mu.Unlock()

	if len(callbacks) == 0 {
		logger.Info("没有注册的关闭回调")
		return nil
	}

	logger.Infof("开始优雅关闭，共 %d 个回调", len(callbacks))

	errs := make(chan error, len(callbacks))
	var wg sync.WaitGroup
	for _, cb := range callbacks {
		wg.Add(1)
		go func(cb callback) {
			defer wg.Done()
			if err := cb.handler(ctx); err != nil {
				logger.Errorf("关闭 %s 失败: %v", cb.name, err)
				errs <- errors.Wrap(err, cb.name)
				return
			}
			logger.Debugf("%s 已关闭", cb.name)
		}(cb)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("所有关闭回调已完成")
	case <-ctx.Done():
		logger.Warnf("关闭超时: %v", ctx.Err())
		return ctx.Err()
	}

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

// WaitForSignal 阻塞直到收到 SIGINT/SIGTERM 或 ctx 结束
func WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		return sig
	case <-ctx.Done():
		return nil
	}
}
