package nodes

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	err := r.Register(TypeInfo{
		Type:        "custom",
		DisplayName: "Custom",
		Category:    "Test",
		New:         NewDelayNode,
	})
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	info, err := r.Get("custom")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if info.DisplayName != "Custom" {
		t.Errorf("DisplayName = %q", info.DisplayName)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrNodeTypeNotFound) {
		t.Errorf("Get(missing) error = %v, ожидался ErrNodeTypeNotFound", err)
	}
}

func TestRegistry_DuplicateType(t *testing.T) {
	r := NewRegistry()

	info := TypeInfo{Type: "dup", New: NewDelayNode}
	if err := r.Register(info); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(info); !errors.Is(err, ErrDuplicateType) {
		t.Errorf("повторная регистрация: %v, ожидался ErrDuplicateType", err)
	}
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(TypeInfo{Type: "", New: NewDelayNode}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("пустой тип: %v", err)
	}
	if err := r.Register(TypeInfo{Type: "x", New: nil}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil конструктор: %v", err)
	}
}

func TestRegistry_CreateInstance(t *testing.T) {
	r := DefaultRegistry()

	n, err := r.CreateInstance(TypeUserInput, "input1", map[string]any{"value": "x"})
	if err != nil {
		t.Fatalf("CreateInstance() error: %v", err)
	}
	if n.ID() != "input1" {
		t.Errorf("ID() = %q", n.ID())
	}
	if n.Type() != TypeUserInput {
		t.Errorf("Type() = %q", n.Type())
	}

	if _, err := r.CreateInstance("nope", "x", nil); !errors.Is(err, ErrNodeTypeNotFound) {
		t.Errorf("CreateInstance(nope) error = %v", err)
	}
}

func TestDefaultRegistry_Builtins(t *testing.T) {
	r := DefaultRegistry()

	want := []string{
		TypeConditionalLogic, TypeDelay, TypeHTTPRequest,
		TypeImageGeneration, TypeLLMTextGeneration,
		TypeOutput, TypeUserInput, TypeVideoGeneration,
	}
	got := r.Types()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, ожидалось %v", got, want)
	}

	categories := r.Categories()
	wantCats := []string{CategoryAI, CategoryInputOutput, CategoryIntegration, CategoryLogic, CategoryUtility}
	if !reflect.DeepEqual(categories, wantCats) {
		t.Errorf("Categories() = %v", categories)
	}

	ai := r.ListByCategory(CategoryAI)
	if len(ai) != 3 {
		t.Errorf("ListByCategory(AI) вернул %d типов", len(ai))
	}
}

func TestExecute_SuccessAndMetadata(t *testing.T) {
	n := NewUserInputNode("input1", map[string]any{"value": "привет"})

	result := Execute(context.Background(), n, nil, nil)
	if !result.Success {
		t.Fatalf("Success = false, error = %s", result.Error)
	}
	if result.Metadata["node_id"] != "input1" || result.Metadata["node_type"] != TypeUserInput {
		t.Errorf("Metadata = %v", result.Metadata)
	}
	if result.ExecutionTime < 0 {
		t.Errorf("ExecutionTime = %v", result.ExecutionTime)
	}
}

func TestExecute_ErrorNeverPropagates(t *testing.T) {
	// required=true без значения — узел возвращает ошибку.
	n := NewUserInputNode("input1", map[string]any{"required": true})

	result := Execute(context.Background(), n, nil, nil)
	if result.Success {
		t.Fatal("Success = true, ожидалась ошибка")
	}
	if result.Error == "" {
		t.Error("Error пуст")
	}
	if result.Metadata["node_id"] != "input1" {
		t.Errorf("Metadata = %v", result.Metadata)
	}
}

type panicNode struct{ base }

func (n *panicNode) Type() string            { return "panic" }
func (n *panicNode) ValidateConfig() []string { return nil }
func (n *panicNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	panic("boom")
}

func TestExecute_RecoversPanic(t *testing.T) {
	n := &panicNode{base: newBase("p1", nil)}

	result := Execute(context.Background(), n, nil, nil)
	if result.Success {
		t.Fatal("Success = true после паники")
	}
	if result.Error == "" {
		t.Error("Error пуст после паники")
	}
	if result.Metadata["node_id"] != "p1" {
		t.Errorf("Metadata = %v", result.Metadata)
	}
}
