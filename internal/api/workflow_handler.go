package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Nodeflow/internal/domain"
	"github.com/shaiso/Nodeflow/internal/engine"
)

// ListWorkflows возвращает список workflows.
// GET /api/v1/workflows?limit=...&offset=...
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	limit := int(mustParseInt(r.URL.Query().Get("limit"), 50))
	offset := int(mustParseInt(r.URL.Query().Get("offset"), 0))

	workflows, err := h.workflowRepo.List(r.Context(), limit, offset)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	List(w, workflows, len(workflows))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	wf := domain.NewWorkflow(req.Name)
	wf.Description = req.Description
	wf.Nodes = req.Nodes
	wf.Connections = req.Connections
	wf.Metadata = req.Metadata

	if errs := h.validateDefinition(wf); len(errs) > 0 {
		JSON(w, http.StatusBadRequest, ValidateWorkflowResponse{Valid: false, Errors: errs})
		return
	}

	if err := h.workflowRepo.Create(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, wf)
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, wf)
}

// UpdateWorkflow обновляет workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Description != nil {
		wf.Description = *req.Description
	}
	if req.Nodes != nil {
		wf.Nodes = *req.Nodes
	}
	if req.Connections != nil {
		wf.Connections = *req.Connections
	}
	if req.Metadata != nil {
		wf.Metadata = *req.Metadata
	}

	if errs := h.validateDefinition(wf); len(errs) > 0 {
		JSON(w, http.StatusBadRequest, ValidateWorkflowResponse{Valid: false, Errors: errs})
		return
	}

	if err := h.workflowRepo.Update(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, wf)
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// ValidateWorkflow валидирует определение workflow без сохранения.
// POST /api/v1/workflows/validate
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req ValidateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf := &domain.Workflow{Nodes: req.Nodes, Connections: req.Connections}
	errs := h.validateDefinition(wf)

	Success(w, ValidateWorkflowResponse{Valid: len(errs) == 0, Errors: errs})
}

// validateDefinition проверяет структуру, типы узлов, их конфигурацию
// и отсутствие циклов. Возвращает список всех найденных нарушений.
func (h *Handler) validateDefinition(wf *domain.Workflow) []string {
	errs := wf.ValidateStructure()
	if len(errs) > 0 {
		return errs
	}

	// Пустое определение — допустимый черновик; валидируем граф,
	// только когда узлы есть.
	if len(wf.Nodes) > 0 {
		g := engine.NewGraph()
		for _, n := range wf.Nodes {
			if err := g.AddNode(n.ID); err != nil {
				errs = append(errs, err.Error())
			}
		}
		for _, c := range wf.Connections {
			if err := g.AddEdge(c.FromNode, c.ToNode); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := g.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if h.registry != nil {
		for _, n := range wf.Nodes {
			if !h.registry.Has(n.Type) {
				errs = append(errs, "unknown node type: "+n.Type)
				continue
			}
			node, err := h.registry.CreateInstance(n.Type, n.ID, n.Config)
			if err != nil {
				errs = append(errs, err.Error())
				continue
			}
			for _, msg := range node.ValidateConfig() {
				errs = append(errs, "node "+n.ID+": "+msg)
			}
		}
	}

	return errs
}
