package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeLLMTextGeneration — тип узла генерации текста.
const TypeLLMTextGeneration = "llm_text_generation"

// Ключи конфигурации llm_text_generation.
const (
	configPrompt      = "prompt"
	configProvider    = "provider"
	configModel       = "model"
	configTemperature = "temperature"
	configMaxTokens   = "max_tokens"
)

// Переменные окружения с API-ключами провайдеров.
const (
	envOpenAIKey    = "OPENAI_API_KEY"
	envAnthropicKey = "ANTHROPIC_API_KEY"
)

// LLMTextGenerationNode — узел генерации текста через LLM.
//
// Поддерживает OpenAI и Anthropic через их HTTP API. Если API-ключ
// провайдера не задан в окружении, узел возвращает симулированный
// ответ — это позволяет прогонять workflow без внешних сервисов.
type LLMTextGenerationNode struct {
	base
	client *http.Client
}

// NewLLMTextGenerationNode создаёт новый LLMTextGenerationNode.
func NewLLMTextGenerationNode(nodeID string, config map[string]any) Node {
	return &LLMTextGenerationNode{
		base:   newBase(nodeID, config),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Type возвращает тип узла.
func (n *LLMTextGenerationNode) Type() string {
	return TypeLLMTextGeneration
}

// ValidateConfig проверяет конфигурацию узла.
func (n *LLMTextGenerationNode) ValidateConfig() []string {
	errs := missingRequired(n.config, LLMConfigSchema())

	if p := configString(n.config, configProvider, ""); p != "" {
		switch p {
		case "openai", "anthropic", "simulated":
		default:
			errs = append(errs, fmt.Sprintf("unsupported provider: %s", p))
		}
	}
	return errs
}

// Run выполняет узел.
func (n *LLMTextGenerationNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	promptTemplate := configString(n.config, configPrompt, "")
	provider := configString(n.config, configProvider, "")
	model := configString(n.config, configModel, "")
	temperature := configFloat(n.config, configTemperature, 0.7)
	maxTokens := configInt(n.config, configMaxTokens, 2000)

	prompt := interpolate.InterpolateString(promptTemplate, vars, inputs)
	if prompt == "" {
		return nil, fmt.Errorf("%w: %s: prompt is required", ErrInvalidConfig, TypeLLMTextGeneration)
	}

	if provider == "" {
		provider = detectLLMProvider(model)
	}

	var (
		text   string
		tokens int
		err    error
	)
	switch provider {
	case "openai":
		text, tokens, err = n.generateOpenAI(ctx, prompt, model, temperature, maxTokens)
	case "anthropic":
		text, tokens, err = n.generateAnthropic(ctx, prompt, model, temperature, maxTokens)
	case "simulated":
		text, tokens = simulateText(prompt)
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"text":        text,
		"output":      text,
		"prompt_used": prompt,
		"provider":    provider,
		"model":       model,
		"tokens_used": tokens,
	}, nil
}

// detectLLMProvider определяет провайдера по имени модели.
func detectLLMProvider(model string) string {
	switch {
	case strings.HasPrefix(model, "claude"):
		if os.Getenv(envAnthropicKey) == "" {
			return "simulated"
		}
		return "anthropic"
	case strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o"):
		if os.Getenv(envOpenAIKey) == "" {
			return "simulated"
		}
		return "openai"
	default:
		if os.Getenv(envOpenAIKey) != "" {
			return "openai"
		}
		return "simulated"
	}
}

// generateOpenAI вызывает OpenAI Chat Completions API.
func (n *LLMTextGenerationNode) generateOpenAI(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, int, error) {
	apiKey := os.Getenv(envOpenAIKey)
	if apiKey == "" {
		text, tokens := simulateText(prompt)
		return text, tokens, nil
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	payload := map[string]any{
		"model":       model,
		"messages":    []any{map[string]any{"role": "user", "content": prompt}},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}

	headers := map[string]string{"Authorization": "Bearer " + apiKey}
	if err := n.postJSON(ctx, "https://api.openai.com/v1/chat/completions", headers, payload, &parsed); err != nil {
		return "", 0, fmt.Errorf("openai: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, fmt.Errorf("openai: empty choices in response")
	}
	return parsed.Choices[0].Message.Content, parsed.Usage.TotalTokens, nil
}

// generateAnthropic вызывает Anthropic Messages API.
func (n *LLMTextGenerationNode) generateAnthropic(ctx context.Context, prompt, model string, temperature float64, maxTokens int) (string, int, error) {
	apiKey := os.Getenv(envAnthropicKey)
	if apiKey == "" {
		text, tokens := simulateText(prompt)
		return text, tokens, nil
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	payload := map[string]any{
		"model":       model,
		"messages":    []any{map[string]any{"role": "user", "content": prompt}},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}

	var parsed struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": "2023-06-01",
	}
	if err := n.postJSON(ctx, "https://api.anthropic.com/v1/messages", headers, payload, &parsed); err != nil {
		return "", 0, fmt.Errorf("anthropic: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", 0, fmt.Errorf("anthropic: empty content in response")
	}
	return parsed.Content[0].Text, parsed.Usage.OutputTokens, nil
}

// postJSON выполняет POST с JSON телом и разбирает JSON ответ.
func (n *LLMTextGenerationNode) postJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return json.Unmarshal(raw, out)
}

// simulateText возвращает симулированный ответ LLM.
func simulateText(prompt string) (string, int) {
	trimmed := prompt
	if len(trimmed) > 80 {
		trimmed = trimmed[:80] + "..."
	}
	text := fmt.Sprintf("[simulated] response for prompt: %s", trimmed)
	return text, len(strings.Fields(prompt))
}

// LLMConfigSchema возвращает схему конфигурации llm_text_generation.
func LLMConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "Шаблон промпта с {{переменными}}",
			},
			"provider": map[string]any{
				"type": "string",
				"enum": []string{"openai", "anthropic", "simulated"},
			},
			"model":       map[string]any{"type": "string"},
			"temperature": map[string]any{"type": "number", "default": 0.7},
			"max_tokens":  map[string]any{"type": "integer", "default": 2000},
		},
		"required": []string{"prompt"},
	}
}

// LLMInputSchema возвращает схему входов llm_text_generation.
func LLMInputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{"description": "Данные для подстановки в промпт"},
		},
	}
}

// LLMOutputSchema возвращает схему выходов llm_text_generation.
func LLMOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":        map[string]any{"type": "string"},
			"output":      map[string]any{"type": "string"},
			"prompt_used": map[string]any{"type": "string"},
			"provider":    map[string]any{"type": "string"},
			"model":       map[string]any{"type": "string"},
			"tokens_used": map[string]any{"type": "integer"},
		},
		"required": []string{"text"},
	}
}
