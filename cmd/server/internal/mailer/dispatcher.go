package mailer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/houzhh15/workrelay/pkg/metrics"
)

// ErrClosed 派发器已关闭
var ErrClosed = errors.New("mail dispatcher closed")

// defaultSendTimeout 单封邮件发送的最长时间
const defaultSendTimeout = 2 * time.Minute

// Result 一次后台发送的结果
type Result struct {
	Contact  Contact
	Err      error
	Duration time.Duration
}

// DispatcherConfig 派发器配置
type DispatcherConfig struct {
	From          string
	To            string
	MaxConcurrent int
	SendTimeout   time.Duration
}

// Dispatcher 在后台发送联系邮件，调用方无需等待发送完成
// 每次派发返回一个只读结果通道，发送结束后写入一次结果并关闭
type Dispatcher struct {
	sender  Sender
	cfg     DispatcherConfig
	sem     *semaphore.Weighted
	log     *slog.Logger
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewDispatcher 创建派发器
func NewDispatcher(sender Sender, cfg DispatcherConfig, log *slog.Logger) *Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		sender:  sender,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		log:     log,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Dispatch 立即返回，邮件在后台 goroutine 中发送
func (d *Dispatcher) Dispatch(c Contact) <-chan Result {
	results := make(chan Result, 1)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		results <- Result{Contact: c, Err: ErrClosed}
		close(results)
		return results
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer close(results)
		results <- d.send(c)
	}()

	return results
}

func (d *Dispatcher) send(c Contact) Result {
	start := time.Now()

	if err := d.sem.Acquire(d.baseCtx, 1); err != nil {
		return d.finish(c, start, err)
	}
	defer d.sem.Release(1)

	metrics.MailStarted()
	defer metrics.MailFinished()

	ctx, cancel := context.WithTimeout(d.baseCtx, d.cfg.SendTimeout)
	defer cancel()

	err := d.sender.Send(ctx, Compose(d.cfg.From, d.cfg.To, c))
	return d.finish(c, start, err)
}

func (d *Dispatcher) finish(c Contact, start time.Time, err error) Result {
	res := Result{Contact: c, Err: err, Duration: time.Since(start)}

	switch {
	case err == nil:
		metrics.RecordMailDispatch("sent")
		d.logInfo("Message Sent", "email", c.Email, "duration_ms", res.Duration.Milliseconds())
	case errors.Is(err, ErrTokenExchange):
		metrics.RecordMailDispatch("token_error")
		d.logError("contact mail token exchange failed", "email", c.Email, "error", err)
	default:
		metrics.RecordMailDispatch("send_error")
		d.logError("contact mail send failed", "email", c.Email, "error", err)
	}
	return res
}

// Close 拒绝新的派发并等待进行中的发送结束；ctx 到期时取消排队与进行中的发送并返回
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) logInfo(msg string, args ...any) {
	if d.log != nil {
		d.log.Info(msg, args...)
	}
}

func (d *Dispatcher) logError(msg string, args ...any) {
	if d.log != nil {
		d.log.Error(msg, args...)
	}
}
