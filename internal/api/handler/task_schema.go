package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// --- Request / Response types ---

type createTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// replaceTaskRequest is the PUT body: title is required, omitted optional
// fields are reset.
type replaceTaskRequest struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// patchTaskRequest is the PATCH body: absent fields are left unchanged.
type patchTaskRequest struct {
	Title       *string `json:"title"       validate:"omitempty,max=200"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type listTasksQuery struct {
	Completed string `query:"completed"`
	Search    string `query:"search"`
	Ordering  string `query:"ordering" validate:"omitempty,oneof=updated_at -updated_at"`
	Page      int    `query:"page"     validate:"omitempty,min=1"`
	Limit     int    `query:"limit"    validate:"omitempty,min=1"`
}

// Response-only types owned by the transport layer, separate from domain
// types so the JSON contract does not follow internal changes.

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	Owner       string    `json:"owner"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listTasksResponse struct {
	Data       []taskResponse     `json:"data"`
	Pagination paginationResponse `json:"pagination"`
}
