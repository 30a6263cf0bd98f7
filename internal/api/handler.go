package api

import (
	"log/slog"
	"strconv"

	"github.com/shaiso/Nodeflow/internal/cache"
	"github.com/shaiso/Nodeflow/internal/mq"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/repo"
	"github.com/shaiso/Nodeflow/internal/runner"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflowRepo  *repo.WorkflowRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	publisher     *mq.Publisher
	registry      *nodes.Registry
	runner        *runner.Runner
	cache         *cache.ExecutionCache
	runOpts       runner.Options
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	WorkflowRepo  *repo.WorkflowRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Publisher     *mq.Publisher
	Registry      *nodes.Registry
	Runner        *runner.Runner
	Cache         *cache.ExecutionCache

	// RunOptions — опции синхронных запусков по умолчанию.
	// InputData и RunID заполняются per-request.
	RunOptions runner.Options

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		workflowRepo:  cfg.WorkflowRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		publisher:     cfg.Publisher,
		registry:      cfg.Registry,
		runner:        cfg.Runner,
		cache:         cfg.Cache,
		runOpts:       cfg.RunOptions,
		logger:        cfg.Logger,
	}
}

// mustParseInt парсит строку в int64 с дефолтным значением.
func mustParseInt(s string, defaultVal int64) int64 {
	if s == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
