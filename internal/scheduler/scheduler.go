package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/repo"
)

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	scheduleRepo  *repo.ScheduleRepo
	executionRepo *repo.ExecutionRepo
	workflowRepo  *repo.WorkflowRepo
	publisher     *mq.Publisher
	logger        *slog.Logger
	batchSize     int
}

// Config — конфигурация Scheduler.
type Config struct {
	ScheduleRepo  *repo.ScheduleRepo
	ExecutionRepo *repo.ExecutionRepo
	WorkflowRepo  *repo.WorkflowRepo
	Publisher     *mq.Publisher
	Logger        *slog.Logger
	BatchSize     int // количество schedules за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	return &Scheduler{
		scheduleRepo:  cfg.ScheduleRepo,
		executionRepo: cfg.ExecutionRepo,
		workflowRepo:  cfg.WorkflowRepo,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		batchSize:     batchSize,
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого schedule создаёт pending execution
// 3. Обновляет next_due_at
// 4. Публикует run.trigger в RabbitMQ
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := time.Now()

	// 1. Находим due schedules
	schedules, err := s.scheduleRepo.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	// 2. Обрабатываем каждый schedule
	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		execCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			// Продолжаем обработку остальных
			continue
		}

		processed++
		if execCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_created", created,
	)

	return nil
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если execution был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	// 1. Проверяем, что workflow существует
	if _, err := s.workflowRepo.GetByID(ctx, sched.WorkflowID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.logger.Warn("workflow not found for schedule, skipping",
				"schedule_id", sched.ID,
				"workflow_id", sched.WorkflowID,
			)
			// Не возвращаем ошибку — просто пропускаем
			return false, nil
		}
		return false, fmt.Errorf("get workflow: %w", err)
	}

	// 2. Формируем idempotency key: "{schedule_id}_{next_due_at_unix}"
	// Это гарантирует, что для одного schedule и конкретного времени
	// будет создан только один execution
	dueAt := now
	if sched.NextDueAt != nil {
		dueAt = *sched.NextDueAt
	}
	idempKey := fmt.Sprintf("%s_%d", sched.ID, dueAt.Unix())

	// 3. Проверяем, не создан ли уже execution (idempotency)
	existing, err := s.executionRepo.GetByIdempotencyKey(ctx, idempKey)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return false, fmt.Errorf("check idempotency: %w", err)
	}

	var execCreated bool
	var executionID uuid.UUID

	if existing != nil {
		// Execution уже существует — просто обновляем next_due_at
		s.logger.Debug("execution already exists (idempotency)",
			"schedule_id", sched.ID,
			"execution_id", existing.ID,
			"idempotency_key", idempKey,
		)
		executionID = existing.ID
		execCreated = false
	} else {
		// 4. Создаём новый execution
		ex := domain.NewExecution(sched.WorkflowID, sched.InputData)
		ex.IdempotencyKey = idempKey

		if err := s.executionRepo.Create(ctx, ex); err != nil {
			return false, fmt.Errorf("create execution: %w", err)
		}

		s.logger.Info("created execution from schedule",
			"execution_id", ex.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"workflow_id", sched.WorkflowID,
		)

		executionID = ex.ID
		execCreated = true
	}

	// 5. Вычисляем следующее время выполнения
	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — лучше не трогать next_due_at
		return execCreated, nil
	}

	// 6. Обновляем schedule
	sched.RecordRun(executionID, nextDue)
	if err := s.scheduleRepo.Update(ctx, sched); err != nil {
		return execCreated, fmt.Errorf("update schedule: %w", err)
	}

	// 7. Публикуем событие в RabbitMQ (если publisher настроен и execution создан)
	if s.publisher != nil && execCreated {
		if err := s.publisher.PublishRunTrigger(ctx, executionID, sched.WorkflowID); err != nil {
			// Не фатальная ошибка — execution уже создан в БД
			// Worker может забрать его через polling
			s.logger.Warn("failed to publish run.trigger",
				"execution_id", executionID,
				"error", err,
			)
		}
	}

	return execCreated, nil
}
