package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aihub/school-assistant/internal/knowledge"
)

// CircuitBreakerState 熔断器状态
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// CircuitBreaker 熔断器，打开期间直接失败，不会吞掉错误
type CircuitBreaker struct {
	name string

	failureThreshold int
	successThreshold int
	timeout          time.Duration

	state           int32
	failureCount    int32
	successCount    int32
	lastFailureTime time.Time
	mutex           sync.RWMutex
}

// NewCircuitBreaker 创建熔断器，failureThreshold<=0表示不熔断
func NewCircuitBreaker(name string, failureThreshold int, successThreshold int, timeout time.Duration) *CircuitBreaker {
	if successThreshold <= 0 {
		successThreshold = 1
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            int32(StateClosed),
	}
}

// Call 执行函数调用（带熔断保护）
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.canExecute() {
		return &CircuitBreakerError{
			Name:  cb.name,
			State: cb.getState(),
			Err:   ErrCircuitOpen,
		}
	}

	err := fn()
	// 调用方主动取消不计入失败
	if errors.Is(err, context.Canceled) {
		return err
	}
	cb.recordResult(err == nil)

	if err != nil {
		return &CircuitBreakerError{
			Name:  cb.name,
			State: cb.getState(),
			Err:   err,
		}
	}
	return nil
}

// canExecute 检查是否可以执行请求
func (cb *CircuitBreaker) canExecute() bool {
	if cb.failureThreshold <= 0 {
		return true
	}
	switch cb.getState() {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		cb.mutex.RLock()
		canHalfOpen := time.Since(cb.lastFailureTime) >= cb.timeout
		cb.mutex.RUnlock()

		if canHalfOpen {
			atomic.StoreInt32(&cb.state, int32(StateHalfOpen))
			atomic.StoreInt32(&cb.successCount, 0)
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult 记录执行结果
func (cb *CircuitBreaker) recordResult(success bool) {
	if success {
		cb.recordSuccess()
	} else {
		cb.recordFailure()
	}
}

// recordSuccess 记录成功
func (cb *CircuitBreaker) recordSuccess() {
	switch cb.getState() {
	case StateHalfOpen:
		count := atomic.AddInt32(&cb.successCount, 1)
		if int(count) >= cb.successThreshold {
			atomic.StoreInt32(&cb.state, int32(StateClosed))
			atomic.StoreInt32(&cb.failureCount, 0)
		}
	case StateClosed:
		atomic.StoreInt32(&cb.failureCount, 0)
	}
}

// recordFailure 记录失败
func (cb *CircuitBreaker) recordFailure() {
	if cb.failureThreshold <= 0 {
		return
	}
	cb.mutex.Lock()
	cb.lastFailureTime = time.Now()
	cb.mutex.Unlock()

	switch cb.getState() {
	case StateHalfOpen:
		atomic.StoreInt32(&cb.state, int32(StateOpen))
		atomic.StoreInt32(&cb.successCount, 0)
	case StateClosed:
		count := atomic.AddInt32(&cb.failureCount, 1)
		if int(count) >= cb.failureThreshold {
			atomic.StoreInt32(&cb.state, int32(StateOpen))
		}
	}
}

// getState 获取当前状态
func (cb *CircuitBreaker) getState() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// GetState 获取当前状态（外部接口）
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	return cb.getState()
}

// GetStats 获取统计信息
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	return map[string]interface{}{
		"name":              cb.name,
		"state":             cb.getState().String(),
		"failure_count":     atomic.LoadInt32(&cb.failureCount),
		"failure_threshold": cb.failureThreshold,
		"timeout":           cb.timeout.String(),
		"last_failure_time": cb.lastFailureTime,
	}
}

// String 返回状态字符串
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerError 熔断器错误
type CircuitBreakerError struct {
	Name  string
	State CircuitBreakerState
	Err   error
}

func (e *CircuitBreakerError) Error() string {
	return e.Err.Error()
}

func (e *CircuitBreakerError) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen 熔断器打开
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerEmbedder 熔断保护的嵌入协作方
type BreakerEmbedder struct {
	knowledge.Embedder
	breaker *CircuitBreaker
}

// NewBreakerEmbedder 包装嵌入协作方
func NewBreakerEmbedder(inner knowledge.Embedder, breaker *CircuitBreaker) *BreakerEmbedder {
	return &BreakerEmbedder{Embedder: inner, breaker: breaker}
}

// Stats 熔断器统计
func (b *BreakerEmbedder) Stats() map[string]interface{} {
	return b.breaker.GetStats()
}

func (b *BreakerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := b.breaker.Call(func() error {
		var err error
		vec, err = b.Embedder.Embed(ctx, text)
		return err
	})
	return vec, err
}

// BreakerGenerator 熔断保护的生成协作方
type BreakerGenerator struct {
	knowledge.Generator
	breaker *CircuitBreaker
}

// NewBreakerGenerator 包装生成协作方
func NewBreakerGenerator(inner knowledge.Generator, breaker *CircuitBreaker) *BreakerGenerator {
	return &BreakerGenerator{Generator: inner, breaker: breaker}
}

// Stats 熔断器统计
func (b *BreakerGenerator) Stats() map[string]interface{} {
	return b.breaker.GetStats()
}

func (b *BreakerGenerator) Generate(ctx context.Context, messages []knowledge.Message) (string, error) {
	var out string
	err := b.breaker.Call(func() error {
		var err error
		out, err = b.Generator.Generate(ctx, messages)
		return err
	})
	return out, err
}
