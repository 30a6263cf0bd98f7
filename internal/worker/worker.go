package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/runner"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
	defaultPrefetch     = 2
)

// Worker выполняет workflow executions.
//
// Worker — stateless компонент системы, который:
//   - Получает триггеры из очереди RabbitMQ (event-driven)
//   - Периодически проверяет pending executions в БД (polling fallback)
//   - Атомарно забирает execution (pending → running)
//   - Выполняет workflow через Runner
//   - Сохраняет результат и публикует событие run.completed
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди; атомарный захват execution
// гарантирует, что каждый run выполнится один раз.
type Worker struct {
	// Repositories
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo

	// MQ
	publisher *mq.Publisher
	conn      *mq.Connection

	// Runner
	runner  *runner.Runner
	runOpts runner.Options

	// Consumer
	consumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Repositories
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo

	// MQ
	Publisher *mq.Publisher
	Conn      *mq.Connection

	// Runner (обязателен)
	Runner *runner.Runner

	// RunOptions — опции запусков (кэш, лимит параллелизма, таймауты).
	// Options.InputData и Options.RunID заполняются per-execution.
	RunOptions runner.Options

	// Polling configuration
	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество executions за один poll (default: 20)

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		publisher:     cfg.Publisher,
		conn:          cfg.Conn,
		runner:        cfg.Runner,
		runOpts:       cfg.RunOptions,
		pollInterval:  pollInterval,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для runs.trigger
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
	)

	// Consumer для runs.trigger. Без соединения с RabbitMQ
	// работаем в режиме polling-only.
	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueRunsTrigger),
			Handler:  w.handleRunTrigger,
			Prefetch: defaultPrefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("trigger consumer error", "error", err)
			}
		}()
	} else {
		w.logger.Warn("no message queue connection, polling only")
	}

	// Запускаем polling
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	if w.consumer != nil {
		w.consumer.Stop()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем executions,
	// созданные пока worker был выключен)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	executions, err := w.executionRepo.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending executions", "error", err)
		return
	}

	if len(executions) == 0 {
		return
	}

	w.logger.Debug("poll found pending executions", "count", len(executions))

	for i := range executions {
		ex := &executions[i]

		if err := w.processExecution(ctx, ex.ID); err != nil {
			// Execution мог забрать другой worker — это не ошибка
			if errors.Is(err, ErrExecutionNotPending) {
				continue
			}
			w.logger.Error("failed to process execution from poll",
				"execution_id", ex.ID,
				"error", err,
			)
		}
	}
}
