package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-pkgz/pool"
	"go.uber.org/zap"

	"github.com/spec-kit/email-ticket-service/internal/config"
	"github.com/spec-kit/email-ticket-service/internal/domain"
	"github.com/spec-kit/email-ticket-service/internal/events"
	"github.com/spec-kit/email-ticket-service/internal/graph"
	"github.com/spec-kit/email-ticket-service/internal/observability"
	"github.com/spec-kit/email-ticket-service/internal/service"
)

var (
	// ErrQueueFull is returned by Enqueue when the backlog is at capacity.
	ErrQueueFull = errors.New("webhook queue is full")
	// ErrPoolStopped is returned by Enqueue before Start or after Stop.
	ErrPoolStopped = errors.New("webhook pool is not running")
)

// Task is one mailbox notification waiting to become a ticket.
type Task struct {
	MessageID  string
	ReceivedAt time.Time
}

// TicketCreator is the part of the ticket service the pool drives.
type TicketCreator interface {
	Create(ctx context.Context, email domain.InboundEmail, source events.Source) (*service.CreateResult, error)
}

// WebhookPool processes webhook notifications in the background with a fixed number of workers.
type WebhookPool struct {
	fetcher graph.MessageFetcher
	tickets TicketCreator
	metrics *observability.Metrics
	logger  *zap.Logger
	cfg     config.WorkerConfig

	mu      sync.Mutex
	running bool
	queue   chan Task
	group   *pool.WorkerGroup[Task]
	done    chan struct{}
	cancel  context.CancelFunc
}

type taskWorker struct {
	p *WebhookPool
}

// Do implements pool.Worker.
func (w taskWorker) Do(ctx context.Context, task Task) error {
	return w.p.process(ctx, task)
}

// NewWebhookPool builds an idle pool. A nil fetcher makes every task fail fast.
func NewWebhookPool(fetcher graph.MessageFetcher, tickets TicketCreator, cfg config.WorkerConfig, metrics *observability.Metrics, logger *zap.Logger) *WebhookPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	return &WebhookPool{
		fetcher: fetcher,
		tickets: tickets,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "webhook_pool")),
		cfg:     cfg,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (p *WebhookPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	group := pool.New[Task](p.cfg.Workers, taskWorker{p: p}).
		WithBatchSize(1).
		WithWorkerChanSize(1).
		WithContinueOnError()
	if err := group.Go(runCtx); err != nil {
		cancel()
		return err
	}

	p.group = group
	p.cancel = cancel
	p.queue = make(chan Task, p.cfg.QueueSize)
	p.done = make(chan struct{})
	p.running = true
	go p.dispatch(p.queue, group, p.done)

	p.logger.Info("webhook pool started",
		zap.Int("workers", p.cfg.Workers),
		zap.Int("queue_size", p.cfg.QueueSize))
	return nil
}

// dispatch is the only goroutine that submits to the group.
func (p *WebhookPool) dispatch(queue <-chan Task, group *pool.WorkerGroup[Task], done chan<- struct{}) {
	defer close(done)
	for task := range queue {
		p.metrics.SetQueueDepth(len(queue))
		group.Submit(task)
	}
}

// Enqueue hands a task to the pool without blocking.
func (p *WebhookPool) Enqueue(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return ErrPoolStopped
	}
	if task.ReceivedAt.IsZero() {
		task.ReceivedAt = time.Now().UTC()
	}

	select {
	case p.queue <- task:
		p.metrics.SetQueueDepth(len(p.queue))
		return nil
	default:
		p.metrics.RecordWebhookTask("rejected")
		p.logger.Warn("webhook queue full, dropping notification", zap.String("message_id", task.MessageID))
		return ErrQueueFull
	}
}

// Stop drains queued tasks and waits for in-flight work until ctx expires.
func (p *WebhookPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.queue)
	done, group, cancel := p.done, p.group, p.cancel
	p.mu.Unlock()
	defer cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	// task failures are already logged; Close only reports them again
	if err := group.Close(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	p.metrics.SetQueueDepth(0)
	p.logger.Info("webhook pool stopped")
	return nil
}

func (p *WebhookPool) process(ctx context.Context, task Task) error {
	if p.cfg.TaskTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.TaskTimeout())
		defer cancel()
	}
	logger := p.logger.With(zap.String("message_id", task.MessageID))

	if p.fetcher == nil {
		p.metrics.RecordWebhookTask("failed")
		logger.Error("graph client not configured, dropping notification")
		return errors.New("graph client not configured")
	}

	email, err := p.fetcher.FetchMessage(ctx, task.MessageID)
	if err != nil {
		p.metrics.RecordWebhookTask("failed")
		logger.Error("fetching message failed", zap.Error(err))
		return err
	}

	result, err := p.tickets.Create(ctx, email, events.SourceWebhook)
	if err != nil {
		p.metrics.RecordWebhookTask("failed")
		logger.Error("creating ticket from webhook failed", zap.Error(err))
		return err
	}

	p.metrics.RecordWebhookTask(string(result.Outcome))
	logger.Info("webhook notification processed",
		zap.String("outcome", string(result.Outcome)),
		zap.String("ticket_number", result.Ticket.TicketNumber),
		zap.Duration("queued_for", time.Since(task.ReceivedAt)))
	return nil
}
