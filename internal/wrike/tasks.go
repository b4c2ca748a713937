package wrike

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Task is the subset of Wrike's task resource the bridge uses. ID is Wrike's
// opaque API id; the human-facing display id only exists inside Permalink.
type Task struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	Permalink   string `json:"permalink"`
	CreatedDate string `json:"createdDate"`
}

// Folder is a Wrike folder or project.
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Scope string `json:"scope"`
}

type customField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type createTaskPayload struct {
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	CustomFields []customField `json:"customFields,omitempty"`
}

type taskDates struct {
	Type  string `json:"type"`
	Start string `json:"start,omitempty"`
	Due   string `json:"due,omitempty"`
}

type setDatesPayload struct {
	Dates taskDates `json:"dates"`
}

// StatusUpdate describes a status write. Exactly one of CustomStatusID and
// Status should be set; Wrike rejects requests carrying both.
type StatusUpdate struct {
	Status         string `json:"status,omitempty"`
	CustomStatusID string `json:"customStatus,omitempty"`
}

// NewTask is the input for task creation.
type NewTask struct {
	Title       string
	Description string
	Assignee    string
}

// CreatedTask is the creation result. DisplayID is parsed from the permalink
// query and is what users see; ID is the API id needed for follow-up calls.
type CreatedTask struct {
	ID        string
	DisplayID string
	Permalink string
}

// TestConnection verifies the token against the account endpoint. A failure
// here means no Wrike call can succeed, so callers treat it as fatal.
func (c *Client) TestConnection(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/account", nil, nil); err != nil {
		return fmt.Errorf("wrike connectivity check failed: %w", err)
	}
	return nil
}

// CreateTaskInFolder files a new task under folderID. Folder access is
// verified first so a misrouted channel fails with a clear 403 instead of a
// confusing create error. Assignee and description are written to workspace
// custom fields when configured.
func (c *Client) CreateTaskInFolder(ctx context.Context, folderID string, nt NewTask) (*CreatedTask, error) {
	if err := c.do(ctx, http.MethodGet, "/folders/"+folderID, nil, nil); err != nil {
		return nil, fmt.Errorf("folder %s is not accessible: %w", folderID, err)
	}

	payload := createTaskPayload{
		Title:       nt.Title,
		Description: nt.Description,
	}
	if nt.Assignee != "" && c.assigneeFieldID != "" {
		payload.CustomFields = append(payload.CustomFields, customField{ID: c.assigneeFieldID, Value: nt.Assignee})
	}
	if nt.Description != "" && c.descriptionFieldID != "" {
		payload.CustomFields = append(payload.CustomFields, customField{ID: c.descriptionFieldID, Value: nt.Description})
	}

	var created []Task
	if err := c.do(ctx, http.MethodPost, "/folders/"+folderID+"/tasks", payload, &created); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("wrike returned no task for create in folder %s", folderID)
	}

	t := created[0]
	displayID, err := DisplayIDFromPermalink(t.Permalink)
	if err != nil {
		return nil, fmt.Errorf("task %s created but permalink is unusable: %w", t.ID, err)
	}
	return &CreatedTask{ID: t.ID, DisplayID: displayID, Permalink: t.Permalink}, nil
}

// SetTaskDates writes planned start and due dates (YYYY-MM-DD). Empty dates
// are omitted from the payload.
func (c *Client) SetTaskDates(ctx context.Context, taskID, start, due string) error {
	payload := setDatesPayload{
		Dates: taskDates{Type: "Planned", Start: start, Due: due},
	}
	if err := c.do(ctx, http.MethodPut, "/tasks/"+taskID, payload, nil); err != nil {
		return fmt.Errorf("failed to set dates on task %s: %w", taskID, err)
	}
	return nil
}

// UpdateTaskStatus writes a status change to taskID (the API id).
func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, update StatusUpdate) error {
	if err := c.do(ctx, http.MethodPut, "/tasks/"+taskID, update, nil); err != nil {
		return fmt.Errorf("failed to update task %s: %w", taskID, err)
	}
	return nil
}

// GetTask fetches one task by API id.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &tasks); err != nil {
		return nil, fmt.Errorf("failed to fetch task %s: %w", taskID, err)
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	return &tasks[0], nil
}

// ResolveTaskID maps a display id to the API id. It first queries by
// permalink, which is the direct path, then falls back to scanning the most
// recent tasks and matching their permalink display ids. The fallback covers
// permalink formats the query endpoint does not accept.
func (c *Client) ResolveTaskID(ctx context.Context, displayID string) (string, error) {
	permalink := "https://www.wrike.com/open.htm?id=" + url.QueryEscape(displayID)

	var tasks []Task
	err := c.do(ctx, http.MethodGet, "/tasks?permalink="+url.QueryEscape(permalink), nil, &tasks)
	if err == nil && len(tasks) > 0 {
		return tasks[0].ID, nil
	}

	if err := c.do(ctx, http.MethodGet, "/tasks?sortField=CreatedDate&sortOrder=Desc&limit=100", nil, &tasks); err != nil {
		return "", fmt.Errorf("failed to resolve task %s: %w", displayID, err)
	}
	for _, t := range tasks {
		if id, err := DisplayIDFromPermalink(t.Permalink); err == nil && id == displayID {
			return t.ID, nil
		}
	}
	return "", fmt.Errorf("no wrike task found for display id %s", displayID)
}

// ListFolders lists the folders visible to the token, for the ops API.
func (c *Client) ListFolders(ctx context.Context) ([]Folder, error) {
	var folders []Folder
	if err := c.do(ctx, http.MethodGet, "/folders", nil, &folders); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// DisplayIDFromPermalink extracts the human-facing id from a task permalink,
// which carries it in the `id` query parameter.
func DisplayIDFromPermalink(permalink string) (string, error) {
	u, err := url.Parse(permalink)
	if err != nil {
		return "", fmt.Errorf("invalid permalink %q: %w", permalink, err)
	}
	id := u.Query().Get("id")
	if id == "" {
		return "", fmt.Errorf("permalink %q has no id parameter", permalink)
	}
	return id, nil
}
