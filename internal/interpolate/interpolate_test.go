package interpolate

import (
	"reflect"
	"testing"
)

func TestGetNested(t *testing.T) {
	data := map[string]any{
		"user": map[string]any{
			"profile": map[string]any{"name": "Алиса"},
		},
		"count": 42,
	}

	if got := GetNested(data, "user.profile.name"); got != "Алиса" {
		t.Errorf("GetNested(user.profile.name) = %v", got)
	}
	if got := GetNested(data, "count"); got != 42 {
		t.Errorf("GetNested(count) = %v", got)
	}
	if got := GetNested(data, "user.missing.name"); got != nil {
		t.Errorf("GetNested по отсутствующему пути = %v, ожидался nil", got)
	}
	if got := GetNested(data, "count.deeper"); got != nil {
		t.Errorf("GetNested сквозь скаляр = %v, ожидался nil", got)
	}
}

func TestInterpolate_WholeRefKeepsType(t *testing.T) {
	vars := map[string]any{
		"count": float64(7),
		"flag":  true,
		"obj":   map[string]any{"k": "v"},
	}

	if got := Interpolate("{{count}}", vars, nil); got != float64(7) {
		t.Errorf("число потеряло тип: %v (%T)", got, got)
	}
	if got := Interpolate("{{flag}}", vars, nil); got != true {
		t.Errorf("bool потерял тип: %v (%T)", got, got)
	}
	got := Interpolate("{{obj}}", vars, nil)
	if !reflect.DeepEqual(got, map[string]any{"k": "v"}) {
		t.Errorf("map потерял тип: %v (%T)", got, got)
	}
}

func TestInterpolate_MixedString(t *testing.T) {
	vars := map[string]any{"name": "мир", "n": 3}

	got := Interpolate("привет, {{name}}! n={{n}}", vars, nil)
	if got != "привет, мир! n=3" {
		t.Errorf("Interpolate = %q", got)
	}
}

func TestInterpolate_MissingRefBecomesEmpty(t *testing.T) {
	got := Interpolate("x={{nope}}y", map[string]any{}, nil)
	if got != "x=y" {
		t.Errorf("Interpolate = %q", got)
	}
	if got := Interpolate("{{nope}}", map[string]any{}, nil); got != nil {
		t.Errorf("целая неразрешимая ссылка = %v, ожидался nil", got)
	}
}

func TestInterpolate_NoRefsPassthrough(t *testing.T) {
	if got := Interpolate("обычная строка", nil, nil); got != "обычная строка" {
		t.Errorf("Interpolate = %v", got)
	}
}

func TestInterpolate_ResolutionOrder(t *testing.T) {
	vars := map[string]any{"key": "из vars"}
	inputs := map[string]any{
		"key":   "из inputs",
		"other": "только в inputs",
		SourcesKey: map[string]any{
			"input1": map[string]any{"output": "из источника"},
		},
	}

	// vars имеют приоритет над inputs.
	if got := Interpolate("{{key}}", vars, inputs); got != "из vars" {
		t.Errorf("приоритет vars нарушен: %v", got)
	}
	if got := Interpolate("{{other}}", vars, inputs); got != "только в inputs" {
		t.Errorf("поиск в inputs: %v", got)
	}
	// Ссылка по id узла-источника разрешается через _sources.
	if got := Interpolate("{{input1.output}}", vars, inputs); got != "из источника" {
		t.Errorf("поиск через _sources: %v", got)
	}
}

func TestInterpolateValue_Recursive(t *testing.T) {
	vars := map[string]any{"city": "Казань", "n": 2}

	in := map[string]any{
		"url":   "https://api/{{city}}",
		"count": 10,
		"tags":  []any{"{{city}}", "static"},
		"nested": map[string]any{
			"n": "{{n}}",
		},
	}

	got := InterpolateValue(in, vars, nil).(map[string]any)
	if got["url"] != "https://api/Казань" {
		t.Errorf("url = %v", got["url"])
	}
	if got["count"] != 10 {
		t.Errorf("нестроковый скаляр изменился: %v", got["count"])
	}
	tags := got["tags"].([]any)
	if tags[0] != "Казань" || tags[1] != "static" {
		t.Errorf("tags = %v", tags)
	}
	nested := got["nested"].(map[string]any)
	if nested["n"] != 2 {
		t.Errorf("вложенная целая ссылка потеряла тип: %v (%T)", nested["n"], nested["n"])
	}
}

func TestStringify(t *testing.T) {
	if got := Stringify(nil); got != "" {
		t.Errorf("Stringify(nil) = %q", got)
	}
	if got := Stringify(map[string]any{"a": 1}); got != `{"a":1}` {
		t.Errorf("Stringify(map) = %q", got)
	}
	if got := Stringify(3.5); got != "3.5" {
		t.Errorf("Stringify(3.5) = %q", got)
	}
}

func TestExtractRefs(t *testing.T) {
	refs := ExtractRefs("{{a.b}} и {{ c }} и текст")
	want := []string{"a.b", "c"}
	if !reflect.DeepEqual(refs, want) {
		t.Errorf("ExtractRefs = %v, ожидалось %v", refs, want)
	}
	if refs := ExtractRefs("без ссылок"); len(refs) != 0 {
		t.Errorf("ExtractRefs = %v", refs)
	}
}
