package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeHTTPRequest — тип узла HTTP запроса.
const TypeHTTPRequest = "http_request"

const (
	defaultHTTPTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// Ключи конфигурации http_request.
const (
	configMethod     = "method"
	configURL        = "url"
	configHeaders    = "headers"
	configBody       = "body"
	configTimeout    = "timeout"
	configRetries    = "retries"
	configRetryDelay = "retry_delay"
	configParse      = "parse"
)

// Префиксы заголовков, маскируемых в выводе и логах.
var sensitiveHeaderPrefixes = []string{
	"authorization", "api-key", "x-api-key", "proxy-authorization",
}

// HTTPRequestNode — узел HTTP запроса к внешнему API.
//
// Поддерживает интерполяцию URL, заголовков и тела, повторные попытки
// при сетевых ошибках и авторазбор ответа (JSON или текст).
//
// Конфигурация:
//
//	{
//	    "method": "POST",
//	    "url": "https://api.example.com/items/{{input1.output}}",
//	    "headers": {"Authorization": "Bearer {{token}}"},
//	    "body": {"query": "{{query1.output.text}}"},
//	    "timeout": 30,
//	    "retries": 1,
//	    "parse": "auto"
//	}
type HTTPRequestNode struct {
	base
	client *http.Client
}

// NewHTTPRequestNode создаёт новый HTTPRequestNode.
func NewHTTPRequestNode(nodeID string, config map[string]any) Node {
	return &HTTPRequestNode{
		base:   newBase(nodeID, config),
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Type возвращает тип узла.
func (n *HTTPRequestNode) Type() string {
	return TypeHTTPRequest
}

// ValidateConfig проверяет конфигурацию узла.
func (n *HTTPRequestNode) ValidateConfig() []string {
	errs := missingRequired(n.config, HTTPRequestConfigSchema())

	if m := configString(n.config, configMethod, "GET"); m != "" {
		switch strings.ToUpper(m) {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			errs = append(errs, fmt.Sprintf("unknown http method: %s", m))
		}
	}
	return errs
}

// Run выполняет узел.
func (n *HTTPRequestNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	method := strings.ToUpper(configString(n.config, configMethod, "GET"))
	urlTemplate := configString(n.config, configURL, "")
	timeout := configFloat(n.config, configTimeout, 30)
	retries := configInt(n.config, configRetries, 1)
	retryDelay := configFloat(n.config, configRetryDelay, 1.5)
	parseMode := configString(n.config, configParse, "auto")

	url := interpolate.InterpolateString(urlTemplate, vars, inputs)
	if url == "" {
		return nil, fmt.Errorf("%w: %s: url is required", ErrInvalidConfig, TypeHTTPRequest)
	}

	headers := n.buildHeaders(inputs, vars)
	bodyBytes, err := n.buildBody(inputs, vars, headers)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: time.Duration(timeout * float64(time.Second))}

	// Повторяем только сетевые ошибки; HTTP-статусы не повторяются.
	var resp *http.Response
	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if reqErr != nil {
			return nil, fmt.Errorf("build request: %w", reqErr)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err = client.Do(req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("http request cancelled: %w", ctx.Err())
		}
		if attempt >= retries {
			return nil, fmt.Errorf("http request failed: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("http request cancelled: %w", ctx.Err())
		case <-time.After(time.Duration(retryDelay * float64(time.Second))):
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	parsed := parseResponseBody(raw, resp.Header.Get("Content-Type"), parseMode)

	responseHeaders := make(map[string]any)
	for key := range resp.Header {
		responseHeaders[key] = resp.Header.Get(key)
	}

	output := map[string]any{
		"data":             parsed,
		"output":           parsed,
		"status_code":      resp.StatusCode,
		"url":              url,
		"request_method":   method,
		"request_headers":  maskSensitiveHeaders(headers),
		"response_headers": responseHeaders,
		"raw_text":         string(raw),
	}

	if resp.StatusCode >= 400 {
		return output, fmt.Errorf("http status %d: %s", resp.StatusCode, resp.Status)
	}
	return output, nil
}

// buildHeaders интерполирует заголовки из конфигурации.
func (n *HTTPRequestNode) buildHeaders(inputs, vars map[string]any) map[string]string {
	headers := make(map[string]string)
	for key, value := range configMap(n.config, configHeaders) {
		if s, ok := value.(string); ok {
			headers[key] = interpolate.InterpolateString(s, vars, inputs)
		} else {
			headers[key] = interpolate.Stringify(value)
		}
	}
	return headers
}

// buildBody сериализует тело запроса с интерполяцией.
func (n *HTTPRequestNode) buildBody(inputs, vars map[string]any, headers map[string]string) ([]byte, error) {
	body, ok := n.config[configBody]
	if !ok || body == nil {
		return nil, nil
	}

	rendered := interpolate.InterpolateValue(body, vars, inputs)

	var data []byte
	switch v := rendered.(type) {
	case string:
		data = []byte(v)
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("serialize body: %w", err)
		}
		if _, hasContentType := headers["Content-Type"]; !hasContentType {
			headers["Content-Type"] = "application/json"
		}
	}
	return data, nil
}

// parseResponseBody разбирает тело ответа согласно режиму parse.
func parseResponseBody(raw []byte, contentType, mode string) any {
	switch mode {
	case "text":
		return string(raw)
	case "json":
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return string(raw)
		}
		return parsed
	default: // auto
		if strings.Contains(contentType, "application/json") || json.Valid(raw) {
			var parsed any
			if err := json.Unmarshal(raw, &parsed); err == nil {
				return parsed
			}
		}
		return string(raw)
	}
}

// maskSensitiveHeaders маскирует чувствительные заголовки.
func maskSensitiveHeaders(headers map[string]string) map[string]any {
	safe := make(map[string]any, len(headers))
	for key, value := range headers {
		lower := strings.ToLower(key)
		masked := false
		for _, prefix := range sensitiveHeaderPrefixes {
			if strings.HasPrefix(lower, prefix) {
				masked = true
				break
			}
		}
		if masked {
			safe[key] = "***"
		} else {
			safe[key] = value
		}
	}
	return safe
}

// HTTPRequestConfigSchema возвращает схему конфигурации http_request.
func HTTPRequestConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"method": map[string]any{
				"type":    "string",
				"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default": "GET",
			},
			"url":         map[string]any{"type": "string"},
			"headers":     map[string]any{"type": "object", "default": map[string]any{}},
			"body":        map[string]any{"type": []string{"object", "string", "null"}},
			"timeout":     map[string]any{"type": "number", "default": 30},
			"retries":     map[string]any{"type": "integer", "default": 1},
			"retry_delay": map[string]any{"type": "number", "default": 1.5},
			"parse": map[string]any{
				"type":    "string",
				"enum":    []string{"auto", "json", "text"},
				"default": "auto",
			},
		},
		"required": []string{"url"},
	}
}

// HTTPRequestInputSchema возвращает схему входов http_request.
func HTTPRequestInputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":  map[string]any{"type": "string"},
			"body": map[string]any{"type": []string{"object", "string"}},
		},
	}
}

// HTTPRequestOutputSchema возвращает схему выходов http_request.
func HTTPRequestOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"data":             map[string]any{},
			"output":           map[string]any{},
			"status_code":      map[string]any{"type": "integer"},
			"url":              map[string]any{"type": "string"},
			"request_method":   map[string]any{"type": "string"},
			"request_headers":  map[string]any{"type": "object"},
			"response_headers": map[string]any{"type": "object"},
			"raw_text":         map[string]any{"type": "string"},
		},
		"required": []string{"data", "status_code"},
	}
}
