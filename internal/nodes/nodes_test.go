package nodes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

func runNode(t *testing.T, n Node, inputs, vars map[string]any) map[string]any {
	t.Helper()

	output, err := n.Run(context.Background(), inputs, vars)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	m, ok := output.(map[string]any)
	if !ok {
		t.Fatalf("Run() вернул %T, ожидался map", output)
	}
	return m
}

// --- user_input ---

func TestUserInput_ResolutionOrder(t *testing.T) {
	vars := map[string]any{"value": "из контекста"}

	// Значение в конфиге имеет приоритет.
	n := NewUserInputNode("i", map[string]any{"value": "из конфига"})
	out := runNode(t, n, nil, vars)
	if out["output"] != "из конфига" || out["source"] != "config" {
		t.Errorf("output = %v, source = %v", out["output"], out["source"])
	}

	// Без конфига берётся контекст по input_key.
	n = NewUserInputNode("i", map[string]any{})
	out = runNode(t, n, nil, vars)
	if out["output"] != "из контекста" || out["source"] != "context" {
		t.Errorf("output = %v, source = %v", out["output"], out["source"])
	}

	// Потом default.
	n = NewUserInputNode("i", map[string]any{"default": "запасное"})
	out = runNode(t, n, nil, nil)
	if out["output"] != "запасное" || out["source"] != "default" {
		t.Errorf("output = %v, source = %v", out["output"], out["source"])
	}
}

func TestUserInput_RequiredMissing(t *testing.T) {
	n := NewUserInputNode("i", map[string]any{"required": true})
	if _, err := n.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("ожидалась ошибка при отсутствии обязательного значения")
	}

	n = NewUserInputNode("i", map[string]any{"required": false})
	out := runNode(t, n, nil, nil)
	if out["output"] != nil {
		t.Errorf("output = %v, ожидался nil", out["output"])
	}
}

func TestUserInput_Casting(t *testing.T) {
	n := NewUserInputNode("i", map[string]any{"value": "42", "type": "number"})
	out := runNode(t, n, nil, nil)
	if out["output"] != float64(42) {
		t.Errorf("number cast = %v (%T)", out["output"], out["output"])
	}

	n = NewUserInputNode("i", map[string]any{"value": "yes", "type": "boolean"})
	out = runNode(t, n, nil, nil)
	if out["output"] != true {
		t.Errorf("boolean cast = %v", out["output"])
	}

	n = NewUserInputNode("i", map[string]any{"value": "  текст  ", "type": "text"})
	out = runNode(t, n, nil, nil)
	if out["output"] != "текст" {
		t.Errorf("text cast = %q", out["output"])
	}

	n = NewUserInputNode("i", map[string]any{"value": "не число", "type": "number"})
	if _, err := n.Run(context.Background(), nil, nil); err == nil {
		t.Error("ожидалась ошибка кастинга числа")
	}

	n = NewUserInputNode("i", map[string]any{"value": "строка", "type": "json"})
	if _, err := n.Run(context.Background(), nil, nil); err == nil {
		t.Error("ожидалась ошибка кастинга json")
	}
}

// --- conditional_logic ---

func condConfig(logicMode string, conds ...map[string]any) map[string]any {
	list := make([]any, len(conds))
	for i, c := range conds {
		list[i] = c
	}
	return map[string]any{"conditions": list, "logic_mode": logicMode}
}

func TestConditional_Equals(t *testing.T) {
	n := NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "equals", "value1": "{{input1.output}}", "value2": "привет"},
	))

	inputs := map[string]any{
		interpolate.SourcesKey: map[string]any{
			"input1": map[string]any{"output": "привет"},
		},
	}

	out := runNode(t, n, inputs, nil)
	if out["result"] != true || out["branch"] != "true" {
		t.Errorf("result = %v, branch = %v", out["result"], out["branch"])
	}
}

func TestConditional_NumericComparison(t *testing.T) {
	n := NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "greater_than", "value1": "10", "value2": "3"},
	))
	out := runNode(t, n, nil, nil)
	if out["result"] != true {
		t.Errorf("10 > 3: result = %v", out["result"])
	}

	// Нечисловые значения не проходят числовое сравнение.
	n = NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "greater_than", "value1": "abc", "value2": "3"},
	))
	out = runNode(t, n, nil, nil)
	if out["result"] != false {
		t.Errorf("abc > 3: result = %v", out["result"])
	}
}

func TestConditional_LogicModes(t *testing.T) {
	passing := map[string]any{"condition_type": "equals", "value1": "a", "value2": "a"}
	failing := map[string]any{"condition_type": "equals", "value1": "a", "value2": "b"}

	n := NewConditionalLogicNode("c", condConfig("AND", passing, failing))
	if out := runNode(t, n, nil, nil); out["result"] != false {
		t.Errorf("AND: result = %v", out["result"])
	}

	n = NewConditionalLogicNode("c", condConfig("OR", passing, failing))
	if out := runNode(t, n, nil, nil); out["result"] != true {
		t.Errorf("OR: result = %v", out["result"])
	}
}

func TestConditional_EmptyChecks(t *testing.T) {
	n := NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "is_empty", "value1": "   "},
	))
	if out := runNode(t, n, nil, nil); out["result"] != true {
		t.Errorf("is_empty: result = %v", out["result"])
	}

	n = NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "is_not_empty", "value1": "текст"},
	))
	if out := runNode(t, n, nil, nil); out["result"] != true {
		t.Errorf("is_not_empty: result = %v", out["result"])
	}
}

func TestConditional_StringOperators(t *testing.T) {
	cases := []struct {
		condType string
		v1, v2   string
		want     bool
	}{
		{"contains", "hello world", "world", true},
		{"not_contains", "hello", "world", true},
		{"starts_with", "workflow", "work", true},
		{"ends_with", "workflow", "flow", true},
		{"starts_with", "workflow", "flow", false},
	}

	for _, tc := range cases {
		n := NewConditionalLogicNode("c", condConfig("AND",
			map[string]any{"condition_type": tc.condType, "value1": tc.v1, "value2": tc.v2},
		))
		out := runNode(t, n, nil, nil)
		if out["result"] != tc.want {
			t.Errorf("%s(%q, %q) = %v, ожидалось %v", tc.condType, tc.v1, tc.v2, out["result"], tc.want)
		}
	}
}

func TestConditional_ValidateConfig(t *testing.T) {
	n := NewConditionalLogicNode("c", map[string]any{})
	if errs := n.ValidateConfig(); len(errs) == 0 {
		t.Error("ожидалась ошибка: conditions обязательны")
	}

	n = NewConditionalLogicNode("c", condConfig("AND",
		map[string]any{"condition_type": "strange_op", "value1": "x"},
	))
	if errs := n.ValidateConfig(); len(errs) == 0 {
		t.Error("ожидалась ошибка: неизвестный тип условия")
	}
}

// --- output ---

func TestOutput_Template(t *testing.T) {
	n := NewOutputNode("o", map[string]any{"template": "итог: {{input.output}}"})
	inputs := map[string]any{"input": map[string]any{"output": "готово"}}

	out := runNode(t, n, inputs, nil)
	if out["output"] != "итог: готово" {
		t.Errorf("output = %v", out["output"])
	}
}

func TestOutput_PassthroughHidesSources(t *testing.T) {
	n := NewOutputNode("o", map[string]any{})
	inputs := map[string]any{
		"a":                     1,
		interpolate.SourcesKey: map[string]any{"n1": "raw"},
	}

	out := runNode(t, n, inputs, nil)
	result := out["output"].(map[string]any)
	if _, ok := result[interpolate.SourcesKey]; ok {
		t.Error("_sources просочился в итоговый вывод")
	}
	if result["a"] != 1 {
		t.Errorf("result = %v", result)
	}
}

func TestOutput_Fields(t *testing.T) {
	n := NewOutputNode("o", map[string]any{"fields": []any{"n1.text", "direct"}})
	inputs := map[string]any{
		"direct": "значение",
		interpolate.SourcesKey: map[string]any{
			"n1": map[string]any{"text": "из узла"},
		},
	}

	out := runNode(t, n, inputs, nil)
	result := out["output"].(map[string]any)
	if result["n1.text"] != "из узла" || result["direct"] != "значение" {
		t.Errorf("result = %v", result)
	}
}

func TestOutput_TextFormat(t *testing.T) {
	n := NewOutputNode("o", map[string]any{"format": "text"})
	inputs := map[string]any{"b": "2", "a": "1"}

	out := runNode(t, n, inputs, nil)
	text := out["output"].(string)
	if text != "a: 1\nb: 2" {
		t.Errorf("text = %q", text)
	}
}

func TestOutput_ListFormat(t *testing.T) {
	n := NewOutputNode("o", map[string]any{"format": "list", "template": "x"})
	out := runNode(t, n, nil, nil)
	list := out["output"].([]any)
	if len(list) != 1 || list[0] != "x" {
		t.Errorf("list = %v", list)
	}
}

// --- http_request ---

func TestHTTPRequest_JSONRoundtrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if got := r.Header.Get("X-Token"); got != "секрет" {
			t.Errorf("X-Token = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	n := NewHTTPRequestNode("h", map[string]any{
		"method":  "POST",
		"url":     srv.URL + "/items/{{item.output}}",
		"headers": map[string]any{"X-Token": "{{token}}"},
		"body":    map[string]any{"q": "{{query}}"},
	})

	vars := map[string]any{"token": "секрет", "query": "поиск"}
	inputs := map[string]any{
		interpolate.SourcesKey: map[string]any{"item": map[string]any{"output": "42"}},
	}

	out := runNode(t, n, inputs, vars)
	if out["status_code"] != 200 {
		t.Errorf("status_code = %v", out["status_code"])
	}
	data := out["data"].(map[string]any)
	if data["ok"] != true {
		t.Errorf("data = %v", data)
	}
	if !strings.HasSuffix(out["url"].(string), "/items/42") {
		t.Errorf("url = %v", out["url"])
	}
}

func TestHTTPRequest_MasksSensitiveHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewHTTPRequestNode("h", map[string]any{
		"url":     srv.URL,
		"headers": map[string]any{"Authorization": "Bearer abc", "X-Custom": "видимый"},
	})

	out := runNode(t, n, nil, nil)
	reqHeaders := out["request_headers"].(map[string]any)
	if reqHeaders["Authorization"] != "***" {
		t.Errorf("Authorization = %v, ожидалась маска", reqHeaders["Authorization"])
	}
	if reqHeaders["X-Custom"] != "видимый" {
		t.Errorf("X-Custom = %v", reqHeaders["X-Custom"])
	}
}

func TestHTTPRequest_ErrorStatusKeepsOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("not found"))
	}))
	defer srv.Close()

	n := NewHTTPRequestNode("h", map[string]any{"url": srv.URL})

	result := Execute(context.Background(), n, nil, nil)
	if result.Success {
		t.Fatal("Success = true при статусе 404")
	}
	out, ok := result.Output.(map[string]any)
	if !ok {
		t.Fatalf("Output = %T, ожидался map с телом ответа", result.Output)
	}
	if out["status_code"] != 404 {
		t.Errorf("status_code = %v", out["status_code"])
	}
}

func TestHTTPRequest_MissingURL(t *testing.T) {
	n := NewHTTPRequestNode("h", map[string]any{})
	if errs := n.ValidateConfig(); len(errs) == 0 {
		t.Error("ожидалась ошибка: url обязателен")
	}
	if _, err := n.Run(context.Background(), nil, nil); err == nil {
		t.Error("ожидалась ошибка выполнения без url")
	}
}

// --- llm / image / video (симулированный режим) ---

func TestLLM_SimulatedProvider(t *testing.T) {
	n := NewLLMTextGenerationNode("llm", map[string]any{
		"prompt":   "суммаризуй: {{doc.output}}",
		"provider": "simulated",
	})
	inputs := map[string]any{
		interpolate.SourcesKey: map[string]any{"doc": map[string]any{"output": "текст документа"}},
	}

	out := runNode(t, n, inputs, nil)
	text := out["text"].(string)
	if !strings.Contains(text, "текст документа") {
		t.Errorf("text = %q", text)
	}
	if out["prompt_used"] != "суммаризуй: текст документа" {
		t.Errorf("prompt_used = %v", out["prompt_used"])
	}
}

func TestLLM_EmptyPrompt(t *testing.T) {
	n := NewLLMTextGenerationNode("llm", map[string]any{"provider": "simulated"})
	if _, err := n.Run(context.Background(), nil, nil); err == nil {
		t.Error("ожидалась ошибка: пустой prompt")
	}
}

func TestImage_SimulatedDeterministic(t *testing.T) {
	n := NewImageGenerationNode("img", map[string]any{
		"prompt":   "кот в космосе",
		"provider": "simulated",
	})

	out1 := runNode(t, n, nil, nil)
	out2 := runNode(t, n, nil, nil)
	if out1["url"] != out2["url"] {
		t.Errorf("симулированный URL недетерминирован: %v != %v", out1["url"], out2["url"])
	}
	if !strings.Contains(out1["url"].(string), "/image/") {
		t.Errorf("url = %v", out1["url"])
	}
}

func TestVideo_Simulated(t *testing.T) {
	n := NewVideoGenerationNode("vid", map[string]any{
		"prompt":   "закат над морем",
		"duration": 8,
	})

	out := runNode(t, n, nil, nil)
	if !strings.Contains(out["url"].(string), "/video/") {
		t.Errorf("url = %v", out["url"])
	}
	if out["duration"] != 8 {
		t.Errorf("duration = %v", out["duration"])
	}
}

// --- delay ---

func TestDelay_Completes(t *testing.T) {
	n := NewDelayNode("d", map[string]any{"duration_ms": 10})
	inputs := map[string]any{"x": 1}

	out := runNode(t, n, inputs, nil)
	if out["duration_ms"] != int64(10) {
		t.Errorf("duration_ms = %v (%T)", out["duration_ms"], out["duration_ms"])
	}
	passthrough := out["output"].(map[string]any)
	if passthrough["x"] != 1 {
		t.Errorf("output = %v", passthrough)
	}
}

func TestDelay_Cancelled(t *testing.T) {
	n := NewDelayNode("d", map[string]any{"duration_sec": 10})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := n.Run(ctx, nil, nil); err == nil {
		t.Fatal("ожидалась ошибка отмены")
	}
}

func TestDelay_MissingDuration(t *testing.T) {
	n := NewDelayNode("d", map[string]any{})
	if errs := n.ValidateConfig(); len(errs) == 0 {
		t.Error("ожидалась ошибка валидации")
	}
}

// --- схема конфигурации ---

func TestMissingRequired_SchemaShapes(t *testing.T) {
	config := map[string]any{"url": "http://example.com"}

	// Схема, собранная в коде.
	schema := map[string]any{"required": []string{"url", "method"}}
	errs := missingRequired(config, schema)
	if len(errs) != 1 || !strings.Contains(errs[0], "method") {
		t.Errorf("errs = %v", errs)
	}

	// Та же схема после прохода через JSON: required становится []any.
	schema = map[string]any{"required": []any{"url", "method"}}
	errs = missingRequired(config, schema)
	if len(errs) != 1 || !strings.Contains(errs[0], "method") {
		t.Errorf("errs после JSON = %v", errs)
	}
}
