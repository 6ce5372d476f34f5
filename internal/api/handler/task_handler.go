package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tasktracker/task-api/internal/api/metrics"
	"github.com/tasktracker/task-api/internal/core/domain"
	"github.com/tasktracker/task-api/internal/core/ports"
)

const headerIdempotencyKey = "Idempotency-Key"

// TaskHandler handles HTTP requests for task operations.
type TaskHandler struct {
	service ports.TaskService
}

func NewTaskHandler(service ports.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List handles GET /tasks.
//
// @Summary      List visible tasks
// @Description  Admins see every task, users only their own.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        completed  query     bool    false  "Filter by completion"
// @Param        search     query     string  false  "Case-insensitive match on title or description"
// @Param        ordering   query     string  false  "updated_at or -updated_at"
// @Param        page       query     int     false  "Page number (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  listTasksResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Router       /tasks [get]
func (h *TaskHandler) List(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var q listTasksQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return domain.NewValidationError("non_field_errors", "Invalid query parameters.")
	}
	if err := validate(c, &q); err != nil {
		return err
	}

	in := ports.ListTasksInput{
		Search:   q.Search,
		Ordering: q.Ordering,
		Page:     q.Page,
		Limit:    q.Limit,
	}
	if q.Completed != "" {
		completed, err := strconv.ParseBool(strings.TrimSpace(q.Completed))
		if err != nil {
			return domain.NewValidationError("completed", "Must be a valid boolean.")
		}
		in.Completed = &completed
	}

	res, err := h.service.ListVisible(c.Request().Context(), p, in)
	record("list", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, listTasksResponse{
		Data: toTaskResponses(res.Items),
		Pagination: paginationResponse{
			Total:      res.Total,
			Page:       res.Page,
			Limit:      res.Limit,
			TotalPages: res.TotalPages,
		},
	})
}

// Create handles POST /tasks.
//
// @Summary      Create a task
// @Description  The task is always owned by the caller. A repeated Idempotency-Key returns the original task with 200.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      createTaskRequest  true   "Task fields"
// @Success      201              {object}  taskResponse
// @Success      200              {object}  taskResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Router       /tasks [post]
func (h *TaskHandler) Create(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req createTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Create(c.Request().Context(), p, ports.CreateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Completed:      req.Completed,
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey)),
	})
	record("create", err)
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		metrics.IdempotentReplaysTotal.Inc()
		status = http.StatusOK
	}
	return c.JSON(status, toTaskResponse(res.Task))
}

// Get handles GET /tasks/:id.
//
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Task id"
// @Success      200  {object}  taskResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /tasks/{id} [get]
func (h *TaskHandler) Get(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	task, err := h.service.Get(c.Request().Context(), p, c.Param("id"))
	record("read", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Patch handles PATCH /tasks/:id.
//
// @Summary      Partially update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "Task id"
// @Param        body  body      patchTaskRequest  true  "Fields to change"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /tasks/{id} [patch]
func (h *TaskHandler) Patch(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req patchTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	return h.update(c, p, ports.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
}

// Replace handles PUT /tasks/:id.
//
// @Summary      Replace a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Task id"
// @Param        body  body      replaceTaskRequest  true  "Task fields"
// @Success      200   {object}  taskResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /tasks/{id} [put]
func (h *TaskHandler) Replace(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req replaceTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	return h.update(c, p, ports.UpdateTaskInput{
		Title:       &req.Title,
		Description: &req.Description,
		Completed:   &req.Completed,
	})
}

func (h *TaskHandler) update(c echo.Context, p *domain.Principal, in ports.UpdateTaskInput) error {
	task, err := h.service.Update(c.Request().Context(), p, c.Param("id"), in)
	record("update", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTaskResponse(task))
}

// Delete handles DELETE /tasks/:id.
//
// @Summary      Delete a task
// @Tags         tasks
// @Security     BearerAuth
// @Param        id   path  string  true  "Task id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) Delete(c echo.Context) error {
	p, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	err = h.service.Delete(c.Request().Context(), p, c.Param("id"))
	record("delete", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// record counts a task operation by outcome.
func record(action string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthenticated):
		result = "denied"
	case errors.Is(err, domain.ErrTaskNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrValidation):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.TaskOperationsTotal.WithLabelValues(action, result).Inc()
}
