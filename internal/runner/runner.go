package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/shaiso/Nodeflow/internal/cache"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/engine"
	"github.com/shaiso/Nodeflow/internal/interpolate"
	"github.com/shaiso/Nodeflow/internal/nodes"
	"github.com/shaiso/Nodeflow/internal/telemetry"
)

// Ошибки уровня запуска. Фиксируются в RunResult.Error,
// узлы при этих ошибках не выполняются.
var (
	// ErrInvalidWorkflow — структурно некорректный workflow.
	ErrInvalidWorkflow = errors.New("invalid workflow")

	// ErrUnknownNodeType — тип узла не зарегистрирован в реестре.
	ErrUnknownNodeType = errors.New("unknown node type")
)

// ErrorPolicy — политика обработки ошибок узлов.
type ErrorPolicy string

const (
	// PolicyFailFast — остановить планирование уровней после первой
	// ошибки узла. Уже запущенные узлы текущего уровня дорабатывают.
	PolicyFailFast ErrorPolicy = "fail_fast"

	// PolicyContinue — выполнить все уровни независимо от ошибок;
	// входы от упавших источников становятся nil, все ошибки узлов
	// собираются в список ошибок запуска.
	PolicyContinue ErrorPolicy = "continue"
)

// Options — параметры одного запуска workflow.
type Options struct {
	// InputData — входные данные запуска, доступны узлам как переменные.
	InputData map[string]any

	// UseCache включает кэширование результатов узлов.
	UseCache bool

	// ConcurrencyLimit ограничивает число одновременно выполняющихся
	// узлов во всём запуске. 0 — без ограничения.
	ConcurrencyLimit int64

	// NodeTimeout — таймаут выполнения одного узла. 0 — без таймаута.
	NodeTimeout time.Duration

	// ErrorPolicy — политика обработки ошибок (default: fail_fast).
	ErrorPolicy ErrorPolicy

	// RunID — идентификатор запуска. uuid.Nil — сгенерировать новый.
	// Worker передаёт сюда ID существующего execution.
	RunID uuid.UUID
}

// RunResult — итог одного запуска workflow.
// Поля сериализуются в том виде, в котором хранятся и отдаются API.
type RunResult struct {
	WorkflowID     uuid.UUID                     `json:"workflow_id"`
	RunID          uuid.UUID                     `json:"run_id"`
	Status         domain.ExecutionStatus        `json:"status"`
	Error          string                        `json:"error,omitempty"`
	Errors         []string                      `json:"errors,omitempty"`
	OutputData     any                           `json:"output_data"`
	NodeResults    map[string]*domain.NodeResult `json:"node_results"`
	ExecutionOrder []string                      `json:"execution_order"`
	StartedAt      time.Time                     `json:"started_at"`
	FinishedAt     time.Time                     `json:"finished_at"`
	ExecutionTime  float64                       `json:"execution_time"`
}

// Runner выполняет workflow: строит граф из соединений, получает уровни
// от планировщика, разрешает входы узлов из выходов источников и
// выполняет узлы с учётом кэша, лимита конкурентности и таймаутов.
type Runner struct {
	registry *nodes.Registry
	cache    *cache.ExecutionCache
	logger   *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Registry — реестр типов узлов (обязателен).
	Registry *nodes.Registry

	// Cache — кэш результатов узлов. nil отключает кэширование
	// независимо от Options.UseCache.
	Cache *cache.ExecutionCache

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		registry: cfg.Registry,
		cache:    cfg.Cache,
		logger:   logger,
	}
}

// runState — изменяемое состояние одного запуска.
type runState struct {
	mu      sync.Mutex
	results map[string]*domain.NodeResult
	order   []string
}

func (s *runState) record(nodeID string, result *domain.NodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Результат пишется ровно один раз на узел.
	if _, exists := s.results[nodeID]; !exists {
		s.results[nodeID] = result
	}
}

func (s *runState) get(nodeID string) *domain.NodeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[nodeID]
}

// Run выполняет workflow и всегда возвращает полный RunResult:
// структурные ошибки, циклы и незарегистрированные типы узлов
// фиксируются как failed-результат без выполнения узлов.
func (r *Runner) Run(ctx context.Context, wf *domain.Workflow, opts Options) *RunResult {
	runID := opts.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}
	started := time.Now().UTC()

	logger := r.logger.With("workflow_id", wf.ID.String(), "run_id", runID.String())
	logger.Info("run started", "nodes", len(wf.Nodes), "connections", len(wf.Connections))

	result := &RunResult{
		WorkflowID:  wf.ID,
		RunID:       runID,
		Status:      domain.StatusRunning,
		NodeResults: make(map[string]*domain.NodeResult),
		StartedAt:   started,
	}

	policy := opts.ErrorPolicy
	if policy == "" {
		policy = PolicyFailFast
	}

	// 1. Структурная валидация: дубликаты id и висячие соединения.
	if violations := wf.ValidateStructure(); len(violations) > 0 {
		return r.fail(result, logger, fmt.Errorf("%w: %s", ErrInvalidWorkflow, strings.Join(violations, "; ")))
	}

	// 2. Граф + проверка ацикличности.
	graph, err := buildGraph(wf)
	if err != nil {
		return r.fail(result, logger, err)
	}
	if err := graph.Validate(); err != nil {
		return r.fail(result, logger, err)
	}

	// 3. Все типы узлов должны быть зарегистрированы до выполнения.
	for _, node := range wf.Nodes {
		if !r.registry.Has(node.Type) {
			return r.fail(result, logger, fmt.Errorf("%w: %s (node %s)", ErrUnknownNodeType, node.Type, node.ID))
		}
	}

	// 4. Уровни параллельного выполнения.
	levels, err := engine.Levels(graph)
	if err != nil {
		return r.fail(result, logger, err)
	}

	vars := buildVars(opts.InputData, wf, runID, started)

	var sem *semaphore.Weighted
	if opts.ConcurrencyLimit > 0 {
		sem = semaphore.NewWeighted(opts.ConcurrencyLimit)
	}

	state := &runState{results: make(map[string]*domain.NodeResult)}

	// 5. Выполнение уровней: уровень N+1 не начинается, пока не
	// завершатся все запущенные узлы уровня N (полный join).
	for _, level := range levels {
		var wg sync.WaitGroup

		for _, nodeID := range level {
			node := wf.GetNode(nodeID)
			if node == nil {
				// Граф строится из узлов workflow, сюда не попадаем.
				continue
			}

			state.mu.Lock()
			state.order = append(state.order, nodeID)
			state.mu.Unlock()

			wg.Add(1)
			go func(node *domain.WorkflowNode) {
				defer wg.Done()

				if sem != nil {
					if err := sem.Acquire(ctx, 1); err != nil {
						res := domain.FailedNodeResult(fmt.Sprintf("semaphore: %v", err), 0)
						res.SetMeta("node_id", node.ID)
						res.SetMeta("node_type", node.Type)
						state.record(node.ID, res)
						return
					}
					defer sem.Release(1)
				}

				inputs := resolveInputs(wf, node.ID, state)
				state.record(node.ID, r.executeNode(ctx, node, inputs, vars, opts))
			}(node)
		}

		wg.Wait()

		if policy == PolicyFailFast && levelHasFailure(level, state) {
			break
		}
	}

	// 6-7. Итог запуска.
	state.mu.Lock()
	result.NodeResults = state.results
	result.ExecutionOrder = state.order
	state.mu.Unlock()

	result.Errors = collectErrors(result.ExecutionOrder, result.NodeResults)
	if len(result.Errors) > 0 {
		result.Status = domain.StatusFailed
		result.Error = result.Errors[0]
	} else {
		result.Status = domain.StatusSuccess
	}

	// 8. Итоговый вывод: выход узла типа output, иначе все выходы.
	result.OutputData = extractOutput(wf, result.NodeResults)

	finished := time.Now().UTC()
	result.FinishedAt = finished
	result.ExecutionTime = finished.Sub(started).Seconds()

	telemetry.ObserveRun(string(result.Status), result.ExecutionTime)
	logger.Info("run finished",
		"status", result.Status,
		"executed", len(result.NodeResults),
		"duration", result.ExecutionTime,
	)
	return result
}

// fail завершает запуск фатальной ошибкой без результатов узлов.
func (r *Runner) fail(result *RunResult, logger *slog.Logger, err error) *RunResult {
	finished := time.Now().UTC()
	result.Status = domain.StatusFailed
	result.Error = err.Error()
	result.Errors = []string{err.Error()}
	result.FinishedAt = finished
	result.ExecutionTime = finished.Sub(result.StartedAt).Seconds()

	telemetry.ObserveRun(string(result.Status), result.ExecutionTime)
	logger.Warn("run failed before execution", "error", err)
	return result
}

// executeNode выполняет один узел: кэш, валидация конфигурации,
// управляемый вызов реализации. Никогда не возвращает nil.
func (r *Runner) executeNode(ctx context.Context, node *domain.WorkflowNode, inputs, vars map[string]any, opts Options) *domain.NodeResult {
	useCache := opts.UseCache && r.cache != nil

	if useCache {
		if value, ok := r.cache.Get(node.Type, node.Config, inputs); ok {
			telemetry.ObserveCacheLookup(true)
			if cached, ok := value.(*domain.NodeResult); ok {
				return cachedCopy(cached, node)
			}
		} else {
			telemetry.ObserveCacheLookup(false)
		}
	}

	instance, err := r.registry.CreateInstance(node.Type, node.ID, node.Config)
	if err != nil {
		res := domain.FailedNodeResult(err.Error(), 0)
		res.SetMeta("node_id", node.ID)
		res.SetMeta("node_type", node.Type)
		return res
	}

	// Ошибки конфигурации не доходят до выполнения.
	if errs := instance.ValidateConfig(); len(errs) > 0 {
		res := domain.FailedNodeResult("config validation: "+strings.Join(errs, "; "), 0)
		res.SetMeta("node_id", node.ID)
		res.SetMeta("node_type", node.Type)
		return res
	}

	nodeCtx := ctx
	if opts.NodeTimeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(ctx, opts.NodeTimeout)
		defer cancel()
	}

	result := nodes.Execute(nodeCtx, instance, inputs, vars)
	telemetry.ObserveNode(node.Type, result.Success, result.ExecutionTime)

	// Неудачные результаты не кэшируются.
	if useCache && result.Success {
		r.cache.Set(node.Type, node.Config, inputs, result)
	}
	return result
}

// buildGraph строит граф выполнения из узлов и соединений workflow.
func buildGraph(wf *domain.Workflow) (*engine.Graph, error) {
	g := engine.NewGraph()
	for _, node := range wf.Nodes {
		if err := g.AddNode(node.ID); err != nil {
			return nil, fmt.Errorf("%w: node %q: %v", ErrInvalidWorkflow, node.ID, err)
		}
	}
	for _, conn := range wf.Connections {
		if err := g.AddEdge(conn.FromNode, conn.ToNode); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// buildVars собирает переменные запуска: входные данные пользователя
// плюс метаданные запуска. Узлы читают их, Runner не интерпретирует.
func buildVars(inputData map[string]any, wf *domain.Workflow, runID uuid.UUID, started time.Time) map[string]any {
	vars := make(map[string]any, len(inputData)+3)
	for k, v := range inputData {
		vars[k] = v
	}
	vars["workflow_id"] = wf.ID.String()
	vars["run_id"] = runID.String()
	vars["run_started_at"] = started.Format(time.RFC3339)
	return vars
}

// resolveInputs собирает входы узла из результатов источников.
//
// Для каждого входящего соединения: если у источника нет результата
// или он неуспешен — вход nil; если выход источника map — берётся
// значение по from_output (отсутствие ключа даёт nil); не-map выход
// передаётся как есть только при from_output == "output". Сырые выходы
// собираются под ключом _sources: там присутствует каждый источник,
// упавшие и невыполненные — со значением nil.
func resolveInputs(wf *domain.Workflow, nodeID string, state *runState) map[string]any {
	inputs := make(map[string]any)
	var sources map[string]any

	for _, conn := range wf.Connections {
		if conn.ToNode != nodeID {
			continue
		}
		if sources == nil {
			sources = make(map[string]any)
		}

		var mapped any
		res := state.get(conn.FromNode)
		if res != nil && res.Success {
			sources[conn.FromNode] = res.Output

			if m, ok := res.Output.(map[string]any); ok {
				mapped = m[conn.OutputKey()]
			} else if conn.OutputKey() == domain.DefaultOutputKey {
				mapped = res.Output
			}
		} else if _, seen := sources[conn.FromNode]; !seen {
			sources[conn.FromNode] = nil
		}
		inputs[conn.InputKey()] = mapped
	}

	if sources != nil {
		inputs[interpolate.SourcesKey] = sources
	}
	return inputs
}

// cachedCopy возвращает копию кэшированного результата с пометкой cached.
// Копия нужна, чтобы не мутировать общую запись кэша между запусками.
func cachedCopy(cached *domain.NodeResult, node *domain.WorkflowNode) *domain.NodeResult {
	copied := *cached
	copied.Metadata = make(map[string]any, len(cached.Metadata)+3)
	for k, v := range cached.Metadata {
		copied.Metadata[k] = v
	}
	copied.Metadata["cached"] = true
	copied.Metadata["node_id"] = node.ID
	copied.Metadata["node_type"] = node.Type
	return &copied
}

// levelHasFailure проверяет, упал ли хотя бы один узел уровня.
func levelHasFailure(level []string, state *runState) bool {
	for _, nodeID := range level {
		if res := state.get(nodeID); res != nil && !res.Success {
			return true
		}
	}
	return false
}

// collectErrors собирает ошибки узлов в порядке выполнения.
func collectErrors(order []string, results map[string]*domain.NodeResult) []string {
	var errs []string
	for _, nodeID := range order {
		if res := results[nodeID]; res != nil && !res.Success {
			errs = append(errs, fmt.Sprintf("node %s: %s", nodeID, res.Error))
		}
	}
	return errs
}

// extractOutput возвращает выход узла типа output, если он есть и
// выполнен; иначе — карту выходов всех выполненных узлов.
func extractOutput(wf *domain.Workflow, results map[string]*domain.NodeResult) any {
	for _, node := range wf.Nodes {
		if node.Type != nodes.TypeOutput {
			continue
		}
		if res, ok := results[node.ID]; ok && res.Success {
			return res.Output
		}
	}

	outputs := make(map[string]any, len(results))
	for nodeID, res := range results {
		outputs[nodeID] = res.Output
	}
	return outputs
}
