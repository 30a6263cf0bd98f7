package runner

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/Nodeflow/internal/cache"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/interpolate"
	"github.com/shaiso/Nodeflow/internal/nodes"
)

// testNode — управляемый узел для тестов.
type testNode struct {
	id       string
	nodeType string
	run      func(ctx context.Context, inputs, vars map[string]any) (any, error)
}

func (n *testNode) ID() string                { return n.id }
func (n *testNode) Type() string              { return n.nodeType }
func (n *testNode) ValidateConfig() []string  { return nil }
func (n *testNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	return n.run(ctx, inputs, vars)
}

func registerTestType(t *testing.T, r *nodes.Registry, typeName string, run func(ctx context.Context, inputs, vars map[string]any) (any, error)) {
	t.Helper()
	err := r.Register(nodes.TypeInfo{
		Type:     typeName,
		Category: "Test",
		New: func(nodeID string, config map[string]any) nodes.Node {
			return &testNode{id: nodeID, nodeType: typeName, run: run}
		},
	})
	if err != nil {
		t.Fatalf("Register(%s) error: %v", typeName, err)
	}
}

func newRunner(t *testing.T, registry *nodes.Registry) *Runner {
	t.Helper()
	return New(Config{Registry: registry})
}

func chainWorkflow() *domain.Workflow {
	wf := domain.NewWorkflow("цепочка")
	wf.AddNode(domain.WorkflowNode{ID: "input1", Type: nodes.TypeUserInput, Config: map[string]any{"default": "10"}})
	wf.AddNode(domain.WorkflowNode{ID: "cond1", Type: nodes.TypeConditionalLogic, Config: map[string]any{
		"conditions": []any{
			map[string]any{"condition_type": "greater_than", "value1": "{{input1.output}}", "value2": "5"},
		},
	}})
	wf.AddNode(domain.WorkflowNode{ID: "output1", Type: nodes.TypeOutput, Config: map[string]any{}})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "input1", ToNode: "cond1"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "cond1", ToNode: "output1"})
	return wf
}

func TestRun_EndToEnd(t *testing.T) {
	r := newRunner(t, nodes.DefaultRegistry())
	wf := chainWorkflow()

	result := r.Run(context.Background(), wf, Options{InputData: map[string]any{}})

	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %s, error = %s", result.Status, result.Error)
	}
	if len(result.NodeResults) != 3 {
		t.Fatalf("NodeResults: %d записей", len(result.NodeResults))
	}

	cond := result.NodeResults["cond1"]
	condOut := cond.Output.(map[string]any)
	if condOut["result"] != true || condOut["branch"] != "true" {
		t.Errorf("cond1 output = %v", condOut)
	}

	outputRes := result.NodeResults["output1"]
	if !outputRes.Success {
		t.Fatalf("output1 failed: %s", outputRes.Error)
	}
	// Итоговый вывод запуска — выход узла output.
	if _, ok := result.OutputData.(map[string]any); !ok {
		t.Fatalf("OutputData = %T", result.OutputData)
	}
	if result.OutputData.(map[string]any)["format"] != outputRes.Output.(map[string]any)["format"] {
		t.Errorf("OutputData не совпадает с выходом output1")
	}

	wantOrder := []string{"input1", "cond1", "output1"}
	for i, id := range wantOrder {
		if result.ExecutionOrder[i] != id {
			t.Errorf("ExecutionOrder = %v", result.ExecutionOrder)
			break
		}
	}
}

func failingWorkflow(t *testing.T, registry *nodes.Registry) *domain.Workflow {
	registerTestType(t, registry, "always_fail", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		return nil, context.DeadlineExceeded
	})

	wf := domain.NewWorkflow("с ошибкой")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: nodes.TypeUserInput, Config: map[string]any{"value": "x"}})
	wf.AddNode(domain.WorkflowNode{ID: "b", Type: "always_fail"})
	wf.AddNode(domain.WorkflowNode{ID: "c", Type: nodes.TypeOutput, Config: map[string]any{}})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "b"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "b", ToNode: "c"})
	return wf
}

func TestRun_FailFast(t *testing.T) {
	registry := nodes.DefaultRegistry()
	r := newRunner(t, registry)
	wf := failingWorkflow(t, registry)

	result := r.Run(context.Background(), wf, Options{})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	if _, ok := result.NodeResults["a"]; !ok {
		t.Error("нет результата для a")
	}
	if _, ok := result.NodeResults["b"]; !ok {
		t.Error("нет результата для b")
	}
	if _, ok := result.NodeResults["c"]; ok {
		t.Error("c выполнился после fail-fast остановки")
	}
	if !strings.Contains(result.Error, "node b") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestRun_ContinuePolicy(t *testing.T) {
	registry := nodes.DefaultRegistry()
	r := newRunner(t, registry)
	wf := failingWorkflow(t, registry)

	result := r.Run(context.Background(), wf, Options{ErrorPolicy: PolicyContinue})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	// Все три узла выполнились; c получил nil входы от упавшего b.
	if len(result.NodeResults) != 3 {
		t.Fatalf("NodeResults: %d записей, ожидалось 3", len(result.NodeResults))
	}
	if !result.NodeResults["c"].Success {
		t.Errorf("c failed: %s", result.NodeResults["c"].Error)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v", result.Errors)
	}
}

func TestRun_StructuralError(t *testing.T) {
	r := newRunner(t, nodes.DefaultRegistry())

	wf := domain.NewWorkflow("битый")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: nodes.TypeUserInput, Config: map[string]any{"value": "x"}})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "ghost"})

	result := r.Run(context.Background(), wf, Options{})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	if len(result.NodeResults) != 0 {
		t.Errorf("узлы выполнились при структурной ошибке: %v", result.NodeResults)
	}
	if !strings.Contains(result.Error, "invalid workflow") {
		t.Errorf("Error = %q", result.Error)
	}
}

func TestRun_UnknownNodeType(t *testing.T) {
	r := newRunner(t, nodes.DefaultRegistry())

	wf := domain.NewWorkflow("неизвестный тип")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: "no_such_type"})

	result := r.Run(context.Background(), wf, Options{})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	if !strings.Contains(result.Error, "unknown node type") {
		t.Errorf("Error = %q", result.Error)
	}
	if len(result.NodeResults) != 0 {
		t.Error("узлы выполнились при незарегистрированном типе")
	}
}

func TestRun_CycleDetected(t *testing.T) {
	r := newRunner(t, nodes.DefaultRegistry())

	wf := domain.NewWorkflow("цикл")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: nodes.TypeUserInput, Config: map[string]any{"value": "x"}})
	wf.AddNode(domain.WorkflowNode{ID: "b", Type: nodes.TypeOutput, Config: map[string]any{}})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "b"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "b", ToNode: "a"})

	result := r.Run(context.Background(), wf, Options{})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	if !strings.Contains(result.Error, "cycle") {
		t.Errorf("Error = %q", result.Error)
	}
	if len(result.NodeResults) != 0 {
		t.Error("узлы выполнились при цикле")
	}
}

func TestRun_CacheHit(t *testing.T) {
	registry := nodes.DefaultRegistry()

	var executions atomic.Int64
	registerTestType(t, registry, "counting", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		executions.Add(1)
		return map[string]any{"output": "done"}, nil
	})

	r := New(Config{Registry: registry, Cache: cache.New()})

	wf := domain.NewWorkflow("кэшируемый")
	wf.AddNode(domain.WorkflowNode{ID: "n1", Type: "counting", Config: map[string]any{"k": "v"}})

	first := r.Run(context.Background(), wf, Options{UseCache: true})
	second := r.Run(context.Background(), wf, Options{UseCache: true})

	if first.Status != domain.StatusSuccess || second.Status != domain.StatusSuccess {
		t.Fatalf("статусы: %s, %s", first.Status, second.Status)
	}
	if got := executions.Load(); got != 1 {
		t.Errorf("узел выполнился %d раз, ожидался 1", got)
	}
	if second.NodeResults["n1"].Metadata["cached"] != true {
		t.Errorf("второй запуск без пометки cached: %v", second.NodeResults["n1"].Metadata)
	}
}

func TestRun_FailedResultNotCached(t *testing.T) {
	registry := nodes.DefaultRegistry()

	var executions atomic.Int64
	registerTestType(t, registry, "flaky", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		executions.Add(1)
		return nil, context.DeadlineExceeded
	})

	r := New(Config{Registry: registry, Cache: cache.New()})

	wf := domain.NewWorkflow("без кэша ошибок")
	wf.AddNode(domain.WorkflowNode{ID: "n1", Type: "flaky"})

	r.Run(context.Background(), wf, Options{UseCache: true})
	r.Run(context.Background(), wf, Options{UseCache: true})

	if got := executions.Load(); got != 2 {
		t.Errorf("узел выполнился %d раз, ожидалось 2 (ошибки не кэшируются)", got)
	}
}

func TestRun_ConcurrencyLimit(t *testing.T) {
	registry := nodes.DefaultRegistry()

	var inFlight, maxInFlight atomic.Int64
	registerTestType(t, registry, "probe", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return map[string]any{"output": "ok"}, nil
	})

	wf := domain.NewWorkflow("ромб")
	wf.AddNode(domain.WorkflowNode{ID: "root", Type: "probe"})
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: "probe"})
	wf.AddNode(domain.WorkflowNode{ID: "b", Type: "probe"})
	wf.AddNode(domain.WorkflowNode{ID: "sink", Type: "probe"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "root", ToNode: "a"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "root", ToNode: "b"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "sink", ToInput: "from_a"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "b", ToNode: "sink", ToInput: "from_b"})

	r := newRunner(t, registry)
	result := r.Run(context.Background(), wf, Options{ConcurrencyLimit: 1})

	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %s, error = %s", result.Status, result.Error)
	}
	if len(result.NodeResults) != 4 {
		t.Fatalf("NodeResults: %d записей", len(result.NodeResults))
	}
	if got := maxInFlight.Load(); got > 1 {
		t.Errorf("одновременно выполнялось %d узлов при лимите 1", got)
	}
}

func TestRun_NodeTimeout(t *testing.T) {
	r := newRunner(t, nodes.DefaultRegistry())

	wf := domain.NewWorkflow("таймаут")
	wf.AddNode(domain.WorkflowNode{ID: "slow", Type: nodes.TypeDelay, Config: map[string]any{"duration_sec": 10}})

	result := r.Run(context.Background(), wf, Options{NodeTimeout: 30 * time.Millisecond})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}
	res := result.NodeResults["slow"]
	if res == nil || res.Success {
		t.Fatalf("результат slow = %+v", res)
	}
}

func TestRun_SourcesIncludeFailedUpstream(t *testing.T) {
	registry := nodes.DefaultRegistry()

	registerTestType(t, registry, "fine", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		return map[string]any{"output": "fine"}, nil
	})
	registerTestType(t, registry, "broken", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		return nil, context.DeadlineExceeded
	})

	var sinkInputs map[string]any
	registerTestType(t, registry, "capture", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		sinkInputs = inputs
		return map[string]any{"output": "ok"}, nil
	})

	wf := domain.NewWorkflow("слияние с ошибкой")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: "fine"})
	wf.AddNode(domain.WorkflowNode{ID: "b", Type: "broken"})
	wf.AddNode(domain.WorkflowNode{ID: "sink", Type: "capture"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "sink", ToInput: "from_a"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "b", ToNode: "sink", ToInput: "from_b"})

	r := newRunner(t, registry)
	result := r.Run(context.Background(), wf, Options{ErrorPolicy: PolicyContinue})

	if result.Status != domain.StatusFailed {
		t.Fatalf("Status = %s", result.Status)
	}

	// _sources содержит каждый источник: упавший — со значением nil.
	sources, ok := sinkInputs[interpolate.SourcesKey].(map[string]any)
	if !ok {
		t.Fatalf("_sources отсутствует во входах sink: %v", sinkInputs)
	}
	if len(sources) != 2 {
		t.Fatalf("_sources = %v, ожидались оба источника", sources)
	}
	if out, ok := sources["a"].(map[string]any); !ok || out["output"] != "fine" {
		t.Errorf("_sources[a] = %v", sources["a"])
	}
	if v, present := sources["b"]; !present || v != nil {
		t.Errorf("_sources[b] = %v, present = %v, ожидался nil", v, present)
	}
	if sinkInputs["from_b"] != nil {
		t.Errorf("from_b = %v, ожидался nil", sinkInputs["from_b"])
	}
}

func TestRun_SinkReceivesBothInputs(t *testing.T) {
	registry := nodes.DefaultRegistry()

	registerTestType(t, registry, "echo_id", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		return map[string]any{"output": "готово"}, nil
	})

	var sinkInputs map[string]any
	registerTestType(t, registry, "capture", func(ctx context.Context, inputs, vars map[string]any) (any, error) {
		sinkInputs = inputs
		return map[string]any{"output": "ok"}, nil
	})

	wf := domain.NewWorkflow("слияние")
	wf.AddNode(domain.WorkflowNode{ID: "a", Type: "echo_id"})
	wf.AddNode(domain.WorkflowNode{ID: "b", Type: "echo_id"})
	wf.AddNode(domain.WorkflowNode{ID: "sink", Type: "capture"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "a", ToNode: "sink", ToInput: "from_a"})
	wf.AddConnection(domain.WorkflowConnection{FromNode: "b", ToNode: "sink", ToInput: "from_b"})

	r := newRunner(t, registry)
	result := r.Run(context.Background(), wf, Options{})

	if result.Status != domain.StatusSuccess {
		t.Fatalf("Status = %s, error = %s", result.Status, result.Error)
	}
	if sinkInputs["from_a"] != "готово" || sinkInputs["from_b"] != "готово" {
		t.Errorf("входы sink = %v", sinkInputs)
	}
}
