package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shaiso/Nodeflow/internal/nodes"
)

// ListNodeTypes возвращает список зарегистрированных типов узлов.
// GET /api/v1/node-types?category=...
func (h *Handler) ListNodeTypes(w http.ResponseWriter, r *http.Request) {
	var infos []nodes.TypeInfo
	if category := r.URL.Query().Get("category"); category != "" {
		infos = h.registry.ListByCategory(category)
	} else {
		infos = h.registry.ListAll()
	}

	List(w, infos, len(infos))
}

// GetNodeType возвращает описание одного типа узла.
// GET /api/v1/node-types/{type}
func (h *Handler) GetNodeType(w http.ResponseWriter, r *http.Request) {
	info, err := h.registry.Get(r.PathValue("type"))
	if err != nil {
		if errors.Is(err, nodes.ErrNodeTypeNotFound) {
			NotFound(w, "node type not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, info)
}

// ListNodeCategories возвращает список категорий узлов.
// GET /api/v1/node-types/categories
func (h *Handler) ListNodeCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.registry.Categories()
	List(w, categories, len(categories))
}

// PreviewNode выполняет один узел вне workflow.
// Используется UI для пробного запуска при настройке узла.
// POST /api/v1/node-types/{type}/execute
func (h *Handler) PreviewNode(w http.ResponseWriter, r *http.Request) {
	nodeType := r.PathValue("type")

	var req NodePreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	node, err := h.registry.CreateInstance(nodeType, "preview", req.Config)
	if err != nil {
		if errors.Is(err, nodes.ErrNodeTypeNotFound) {
			NotFound(w, "node type not found")
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	if msgs := node.ValidateConfig(); len(msgs) > 0 {
		JSON(w, http.StatusBadRequest, ValidateWorkflowResponse{Valid: false, Errors: msgs})
		return
	}

	result := nodes.Execute(r.Context(), node, req.Inputs, req.Vars)
	Success(w, result)
}

// GetCacheStats возвращает статистику кэша результатов.
// GET /api/v1/cache/stats
func (h *Handler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		NotFound(w, "cache is not configured")
		return
	}

	Success(w, h.cache.Stats())
}

// ClearCache очищает кэш результатов.
// DELETE /api/v1/cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		NotFound(w, "cache is not configured")
		return
	}

	if nodeType := r.URL.Query().Get("node_type"); nodeType != "" {
		removed := h.cache.Invalidate(nodeType)
		Success(w, map[string]any{"invalidated": removed, "node_type": nodeType})
		return
	}

	h.cache.Clear()
	NoContent(w)
}
