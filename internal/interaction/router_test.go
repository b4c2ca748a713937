package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mkhoudour/taskbridge/internal/orchestrator"
	"github.com/mkhoudour/taskbridge/internal/slackclient"
	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
)

type fakeWorkflow struct {
	createCalls int
	createErr   error
	lastCreate  orchestrator.CreateTaskInput

	updateCalls  int
	updateErr    error
	lastTaskID   string
	lastStatus   task.Status
}

func (f *fakeWorkflow) CreateTask(_ context.Context, in orchestrator.CreateTaskInput) (*orchestrator.CreateTaskResult, error) {
	f.createCalls++
	f.lastCreate = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &orchestrator.CreateTaskResult{TaskID: "42", TaskURL: "https://www.wrike.com/open.htm?id=42"}, nil
}

func (f *fakeWorkflow) UpdateTaskStatus(_ context.Context, taskID string, newStatus task.Status) (*task.Task, error) {
	f.updateCalls++
	f.lastTaskID = taskID
	f.lastStatus = newStatus
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &task.Task{ID: taskID, Status: newStatus}, nil
}

type fakeModals struct {
	openCalls int
	openErr   error
}

func (f *fakeModals) OpenTaskModal(context.Context, string, string) error {
	f.openCalls++
	return f.openErr
}

func viewSubmissionPayload(title string) []byte {
	payload := fmt.Sprintf(`{
		"type": "view_submission",
		"user": {"id": "U1"},
		"view": {
			"callback_id": %q,
			"private_metadata": "C1",
			"state": {
				"values": {
					"task_title": {"title_input": {"value": %q}},
					"task_description": {"description_input": {"value": "details"}},
					"task_start_date": {"start_date_input": {"selected_date": "2026-09-01"}},
					"task_due_date": {"due_date_input": {"selected_date": "2026-09-15"}},
					"task_assignee": {"assignee_input": {"selected_user": "U2"}}
				}
			}
		}
	}`, slackclient.CallbackCreateTask, title)
	return []byte(payload)
}

func blockActionPayload(actionID, value string) []byte {
	payload := fmt.Sprintf(`{
		"type": "block_actions",
		"trigger_id": "trigger123",
		"user": {"id": "U1"},
		"channel": {"id": "C1"},
		"actions": [{
			"type": "static_select",
			"block_id": "b1",
			"action_id": %q,
			"selected_option": {"value": %q}
		}]
	}`, actionID, value)
	return []byte(payload)
}

func bodyJSON(t *testing.T, resp *Response) map[string]any {
	t.Helper()
	data, err := json.Marshal(resp.Body)
	if err != nil {
		t.Fatalf("failed to marshal response body: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	return m
}

func TestViewSubmissionCreatesTask(t *testing.T) {
	workflow := &fakeWorkflow{}
	router := NewRouter(workflow, &fakeModals{})

	resp := router.Handle(context.Background(), viewSubmissionPayload("Ship v2"))

	if workflow.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", workflow.createCalls)
	}
	in := workflow.lastCreate
	if in.Title != "Ship v2" || in.Description != "details" {
		t.Errorf("input = %+v, want extracted title and description", in)
	}
	if in.StartDate != "2026-09-01" || in.DueDate != "2026-09-15" {
		t.Errorf("dates = %q/%q, want extracted dates", in.StartDate, in.DueDate)
	}
	if in.AssigneeUserID != "U2" || in.RequestingUserID != "U1" || in.ChannelID != "C1" {
		t.Errorf("routing fields = %+v, want assignee U2, requester U1, channel C1", in)
	}

	body := bodyJSON(t, resp)
	if body["response_action"] != "clear" {
		t.Errorf("response_action = %v, want clear", body["response_action"])
	}
}

func TestViewSubmissionFailureKeepsModalOpen(t *testing.T) {
	workflow := &fakeWorkflow{
		createErr: cerr.NewError(cerr.Unauthenticated, "Wrike rejected the access token.", nil),
	}
	router := NewRouter(workflow, &fakeModals{})

	resp := router.Handle(context.Background(), viewSubmissionPayload("Ship v2"))

	body := bodyJSON(t, resp)
	if body["response_action"] != "errors" {
		t.Fatalf("response_action = %v, want errors", body["response_action"])
	}
	errs, ok := body["errors"].(map[string]any)
	if !ok || errs[slackclient.BlockTitle] == "" {
		t.Errorf("errors = %v, want message under %s", body["errors"], slackclient.BlockTitle)
	}
}

func TestViewSubmissionUnknownCallbackIgnored(t *testing.T) {
	workflow := &fakeWorkflow{}
	router := NewRouter(workflow, &fakeModals{})

	payload := []byte(`{"type": "view_submission", "view": {"callback_id": "something_else"}}`)
	resp := router.Handle(context.Background(), payload)

	if workflow.createCalls != 0 {
		t.Errorf("create calls = %d, want 0", workflow.createCalls)
	}
	if resp.Body != nil {
		t.Errorf("body = %v, want empty ack", resp.Body)
	}
}

func TestStatusChangeAction(t *testing.T) {
	workflow := &fakeWorkflow{}
	router := NewRouter(workflow, &fakeModals{})

	resp := router.Handle(context.Background(), blockActionPayload("update_task_status", "42:InProgress"))

	if workflow.updateCalls != 1 {
		t.Fatalf("update calls = %d, want 1", workflow.updateCalls)
	}
	if workflow.lastTaskID != "42" || workflow.lastStatus != task.StatusInProgress {
		t.Errorf("update args = %q/%q, want 42/InProgress", workflow.lastTaskID, workflow.lastStatus)
	}

	body := bodyJSON(t, resp)
	if body["response_type"] != "ephemeral" {
		t.Errorf("response_type = %v, want ephemeral", body["response_type"])
	}
}

func TestStatusChangeMalformedValueSkipsWorkflow(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"no separator", "42InProgress"},
		{"blank task id", ":InProgress"},
		{"blank status", "42:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workflow := &fakeWorkflow{}
			router := NewRouter(workflow, &fakeModals{})

			resp := router.Handle(context.Background(), blockActionPayload("update_task_status", tt.value))

			if workflow.updateCalls != 0 {
				t.Errorf("update calls = %d, want 0 for malformed value", workflow.updateCalls)
			}
			if resp.Body == nil {
				t.Errorf("expected an ephemeral explanation, got empty ack")
			}
		})
	}
}

func TestCreateAnotherOpensModal(t *testing.T) {
	modals := &fakeModals{}
	router := NewRouter(&fakeWorkflow{}, modals)

	resp := router.Handle(context.Background(), blockActionPayload("create_another_task", "create_task"))

	if modals.openCalls != 1 {
		t.Errorf("open calls = %d, want 1", modals.openCalls)
	}
	if resp.Body != nil {
		t.Errorf("body = %v, want empty ack", resp.Body)
	}
}

func TestCreateAnotherExpiredTrigger(t *testing.T) {
	modals := &fakeModals{
		openErr: cerr.NewError(cerr.FailedPrecondition, "This action expired.", errors.New("trigger id expired")),
	}
	router := NewRouter(&fakeWorkflow{}, modals)

	resp := router.Handle(context.Background(), blockActionPayload("create_another_task", "create_task"))

	body := bodyJSON(t, resp)
	text, _ := body["text"].(string)
	if text == "" || body["response_type"] != "ephemeral" {
		t.Fatalf("response = %v, want ephemeral text", body)
	}
	if text == "❌ Failed to open the task form. Please try /task again." {
		t.Errorf("expired trigger produced the generic failure message")
	}
}

func TestUnknownInteractionTypeAcked(t *testing.T) {
	router := NewRouter(&fakeWorkflow{}, &fakeModals{})

	resp := router.Handle(context.Background(), []byte(`{"type": "shortcut"}`))
	if resp.StatusCode != 200 || resp.Body != nil {
		t.Errorf("response = %+v, want empty 200", resp)
	}
}

func TestUndecodablePayload(t *testing.T) {
	router := NewRouter(&fakeWorkflow{}, &fakeModals{})

	resp := router.Handle(context.Background(), []byte(`{not json`))
	if resp.StatusCode != 200 || resp.Body == nil {
		t.Errorf("response = %+v, want apologetic 200", resp)
	}
}
