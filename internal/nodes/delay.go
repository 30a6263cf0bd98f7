package nodes

import (
	"context"
	"fmt"
	"time"
)

// TypeDelay — тип узла задержки.
const TypeDelay = "delay"

// Ключи конфигурации delay.
const (
	configDurationSec = "duration_sec"
	configDurationMs  = "duration_ms"
)

// DelayNode — узел задержки.
//
// Приостанавливает ветку workflow на указанное время.
// Поддерживает отмену через context.
type DelayNode struct {
	base
}

// NewDelayNode создаёт новый DelayNode.
func NewDelayNode(nodeID string, config map[string]any) Node {
	return &DelayNode{base: newBase(nodeID, config)}
}

// Type возвращает тип узла.
func (n *DelayNode) Type() string {
	return TypeDelay
}

// ValidateConfig проверяет конфигурацию узла.
func (n *DelayNode) ValidateConfig() []string {
	errs := missingRequired(n.config, DelayConfigSchema())

	if configInt(n.config, configDurationSec, 0) <= 0 && configInt(n.config, configDurationMs, 0) <= 0 {
		errs = append(errs, "duration_sec or duration_ms required")
	}
	return errs
}

// Run выполняет узел.
func (n *DelayNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	duration, err := n.parseDuration()
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("delay cancelled: %w", ctx.Err())
	case <-timer.C:
		return map[string]any{
			"output":      visibleInputs(inputs),
			"duration_ms": duration.Milliseconds(),
		}, nil
	}
}

// parseDuration извлекает длительность из конфигурации.
func (n *DelayNode) parseDuration() (time.Duration, error) {
	if sec := configInt(n.config, configDurationSec, 0); sec > 0 {
		return time.Duration(sec) * time.Second, nil
	}
	if ms := configInt(n.config, configDurationMs, 0); ms > 0 {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return 0, fmt.Errorf("%w: %s: duration_sec or duration_ms required", ErrInvalidConfig, TypeDelay)
}

// DelayConfigSchema возвращает схему конфигурации delay.
func DelayConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"duration_sec": map[string]any{"type": "integer"},
			"duration_ms":  map[string]any{"type": "integer"},
		},
	}
}

// DelayInputSchema возвращает схему входов delay.
func DelayInputSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"properties":  map[string]any{},
		"description": "Входы передаются на выход без изменений",
	}
}

// DelayOutputSchema возвращает схему выходов delay.
func DelayOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output":      map[string]any{},
			"duration_ms": map[string]any{"type": "integer"},
		},
	}
}
