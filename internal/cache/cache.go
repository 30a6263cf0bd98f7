package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultTTL — время жизни записи по умолчанию.
const DefaultTTL = time.Hour

// keyDigestLen — количество hex-символов дайджеста в ключе.
const keyDigestLen = 20

// Entry — одна запись кэша.
type Entry struct {
	// Key — ключ записи ("<type>:<digest>").
	Key string

	// Value — закэшированный результат выполнения узла.
	Value any

	// Timestamp — время создания записи.
	Timestamp time.Time

	// TTL — время жизни. 0 — запись не истекает.
	TTL time.Duration
}

// expired проверяет, истекла ли запись на момент now.
func (e *Entry) expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.Timestamp) >= e.TTL
}

// Stats — статистика кэша.
type Stats struct {
	Size          int     `json:"size"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hit_rate"`
	TotalRequests int64   `json:"total_requests"`
}

// ExecutionCache — детерминированный кэш результатов выполнения узлов.
//
// Ключ выводится из тройки (тип узла, config, resolved inputs):
// значения канонизируются (рекурсивная сортировка ключей map, скаляры
// как есть, прочие типы — строковое представление), сериализуются
// и хэшируются SHA-256. Две логически равные структуры дают один ключ
// независимо от исходного порядка ключей.
//
// Кэш — общее состояние процесса: им пользуются конкурентные выполнения
// узлов внутри одного run и разные runs. Все операции сериализуются
// одним мьютексом.
type ExecutionCache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	defaultTTL time.Duration
	hits       int64
	misses     int64

	// now подменяется в тестах.
	now func() time.Time
}

// New создаёт кэш с TTL по умолчанию.
func New() *ExecutionCache {
	return NewWithTTL(DefaultTTL)
}

// NewWithTTL создаёт кэш с заданным TTL по умолчанию.
// defaultTTL = 0 — записи по умолчанию не истекают.
func NewWithTTL(defaultTTL time.Duration) *ExecutionCache {
	return &ExecutionCache{
		entries:    make(map[string]*Entry),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// normalize приводит значение к JSON-стабильной форме.
//
// map и slice обрабатываются рекурсивно, скаляры (string, числа, bool,
// nil) остаются как есть, нераспознанные типы приводятся к строке.
func normalize(value any) any {
	switch v := value.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return v

	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := make(map[string]any, len(v))
		for _, k := range keys {
			result[k] = normalize(v[k])
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = normalize(item)
		}
		return result

	default:
		return fmt.Sprintf("%v", v)
	}
}

// Key выводит детерминированный ключ кэша для тройки (type, config, inputs).
func Key(nodeType string, config, inputs map[string]any) string {
	payload := struct {
		Type   string `json:"type"`
		Config any    `json:"config"`
		Inputs any    `json:"inputs"`
	}{
		Type:   nodeType,
		Config: normalize(config),
		Inputs: normalize(inputs),
	}

	// json.Marshal сериализует map в отсортированном порядке ключей,
	// поля структуры — в порядке объявления: представление каноническое.
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}

	digest := sha256.Sum256(data)
	return nodeType + ":" + hex.EncodeToString(digest[:])[:keyDigestLen]
}

// Get возвращает закэшированное значение, если оно есть и не истекло.
//
// Истёкшая запись удаляется при чтении (ленивое истечение) и считается
// промахом. Каждый вызов инкрементирует счётчик попаданий или промахов.
func (c *ExecutionCache) Get(nodeType string, config, inputs map[string]any) (any, bool) {
	key := Key(nodeType, config, inputs)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}

	c.hits++
	return entry.Value, true
}

// Set сохраняет значение с TTL по умолчанию.
// Существующая запись с тем же ключом перезаписывается.
func (c *ExecutionCache) Set(nodeType string, config, inputs map[string]any, value any) {
	c.SetTTL(nodeType, config, inputs, value, c.defaultTTL)
}

// SetTTL сохраняет значение с явным TTL. ttl = 0 — запись не истекает.
func (c *ExecutionCache) SetTTL(nodeType string, config, inputs map[string]any, value any, ttl time.Duration) {
	key := Key(nodeType, config, inputs)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Key:       key,
		Value:     value,
		Timestamp: c.now(),
		TTL:       ttl,
	}
}

// Invalidate удаляет все записи для типа узла (по префиксу ключа).
// Возвращает количество удалённых записей.
func (c *ExecutionCache) Invalidate(nodeType string) int {
	prefix := nodeType + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear удаляет все записи и сбрасывает счётчики попаданий/промахов.
func (c *ExecutionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
}

// CleanupExpired удаляет все истёкшие на данный момент записи.
// Возвращает количество удалённых.
func (c *ExecutionCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats возвращает статистику кэша.
func (c *ExecutionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:          len(c.entries),
		Hits:          c.hits,
		Misses:        c.misses,
		HitRate:       hitRate,
		TotalRequests: total,
	}
}
