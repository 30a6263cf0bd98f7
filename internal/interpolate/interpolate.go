package interpolate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// SourcesKey — зарезервированный ключ во входах узла, под которым
// Runner кладёт сырые выходы всех узлов-источников (source id → output).
const SourcesKey = "_sources"

// refPattern — шаблонная ссылка вида {{ path.to.value }}.
var refPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// wholeRefPattern — строка, целиком состоящая из одной ссылки.
// Для таких строк тип значения сохраняется (число остаётся числом).
var wholeRefPattern = regexp.MustCompile(`^\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}$`)

// GetNested разрешает вложенный путь вида "a.b.c" в map-структурах.
// Возвращает nil, если путь не разрешается.
func GetNested(data any, path string) any {
	current := data
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[key]
		if !ok || current == nil {
			return nil
		}
	}
	return current
}

// resolve разрешает корень ссылки и остаток пути.
//
// Порядок поиска корня:
//  1. vars — переменные run (входные данные + метаданные run)
//  2. inputs — входы узла, отображённые по соединениям
//  3. inputs[_sources] — сырые выходы узлов-источников по их id
func resolve(ref string, vars, inputs map[string]any) any {
	root := ref
	rest := ""
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		root, rest = ref[:i], ref[i+1:]
	}

	lookup := func(m map[string]any) (any, bool) {
		if m == nil {
			return nil, false
		}
		v, ok := m[root]
		return v, ok
	}

	base, ok := lookup(vars)
	if !ok {
		base, ok = lookup(inputs)
	}
	if !ok && inputs != nil {
		if sources, isMap := inputs[SourcesKey].(map[string]any); isMap {
			base, ok = sources[root]
		}
	}
	if !ok {
		return nil
	}

	if rest == "" {
		return base
	}
	return GetNested(base, rest)
}

// Interpolate подставляет ссылки {{path}} в строку.
//
// Если строка целиком состоит из одной ссылки, возвращается само
// значение с сохранением типа ({{count}} → число, а не строка).
// Иначе каждая ссылка подставляется строковым представлением;
// неразрешимые ссылки заменяются пустой строкой.
func Interpolate(s string, vars, inputs map[string]any) any {
	if !strings.Contains(s, "{{") {
		return s
	}

	if m := wholeRefPattern.FindStringSubmatch(s); m != nil {
		return resolve(m[1], vars, inputs)
	}

	return refPattern.ReplaceAllStringFunc(s, func(match string) string {
		ref := refPattern.FindStringSubmatch(match)[1]
		return Stringify(resolve(ref, vars, inputs))
	})
}

// InterpolateString — как Interpolate, но результат всегда строка.
func InterpolateString(s string, vars, inputs map[string]any) string {
	return Stringify(Interpolate(s, vars, inputs))
}

// InterpolateValue рекурсивно интерполирует строки внутри map и slice.
// Нестроковые скаляры возвращаются как есть.
func InterpolateValue(value any, vars, inputs map[string]any) any {
	switch v := value.(type) {
	case string:
		return Interpolate(v, vars, inputs)

	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			result[key] = InterpolateValue(val, vars, inputs)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, val := range v {
			result[i] = InterpolateValue(val, vars, inputs)
		}
		return result

	default:
		return value
	}
}

// Stringify приводит значение к строковому представлению для подстановки.
// map и slice сериализуются в JSON, nil — пустая строка.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ExtractRefs возвращает все ссылки, встречающиеся в строке
// (для инспекции workflow и отладки).
func ExtractRefs(s string) []string {
	matches := refPattern.FindAllStringSubmatch(s, -1)
	refs := make([]string, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, m[1])
	}
	return refs
}
