package service

import (
	"errors"
	"sync"
	"time"
)

// ErrPaymentFlowsClosed 进程正在退出，不再接受新的支付流程
var ErrPaymentFlowsClosed = errors.New("payment flows closed")

// PaymentFlows 跟踪已返回给客户端、仍在后台等待到账的支付流程
type PaymentFlows struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active int
	closed bool
}

// NewPaymentFlows 创建支付流程组
func NewPaymentFlows() *PaymentFlows {
	return &PaymentFlows{}
}

// Go 在后台执行 fn，流程组已关闭时返回 ErrPaymentFlowsClosed
func (f *PaymentFlows) Go(fn func()) error {
	if fn == nil {
		return nil
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrPaymentFlowsClosed
	}
	f.active++
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer func() {
			f.mu.Lock()
			f.active--
			f.mu.Unlock()
			f.wg.Done()
		}()
		fn()
	}()
	return nil
}

// Active 当前运行中的流程数
func (f *PaymentFlows) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Drain 关闭流程组并等待运行中的流程结束，返回超时后仍未结束的数量
//
// 未结束的扣款保持原状态，由扣款回收任务在下次启动后处理。
func (f *PaymentFlows) Drain(timeout time.Duration) int {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	if timeout <= 0 {
		timeout = time.Nanosecond
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return 0
	case <-timer.C:
		return f.Active()
	}
}
