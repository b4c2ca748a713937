package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/mkhoudour/taskbridge/internal/notify"
	"github.com/mkhoudour/taskbridge/internal/orchestrator"
	"github.com/mkhoudour/taskbridge/internal/slackclient"
	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
	"github.com/mkhoudour/taskbridge/pkg/clog"
)

// Workflow is the slice of the orchestrator the router invokes.
type Workflow interface {
	CreateTask(ctx context.Context, in orchestrator.CreateTaskInput) (*orchestrator.CreateTaskResult, error)
	UpdateTaskStatus(ctx context.Context, taskID string, newStatus task.Status) (*task.Task, error)
}

// ModalOpener opens the task-creation modal.
type ModalOpener interface {
	OpenTaskModal(ctx context.Context, triggerID, channelID string) error
}

// Router classifies inbound interaction payloads and dispatches them.
// Signature verification happens upstream in the HTTP layer; payloads
// arriving here are authenticated.
type Router struct {
	workflow Workflow
	modals   ModalOpener
}

func NewRouter(workflow Workflow, modals ModalOpener) *Router {
	return &Router{workflow: workflow, modals: modals}
}

// Handle processes one interaction payload and returns the response to send
// back. Every branch answers within Slack's acknowledgment deadline; slow
// mirror work runs in the background inside the workflow.
func (r *Router) Handle(ctx context.Context, payload []byte) *Response {
	var callback slack.InteractionCallback
	if err := json.Unmarshal(payload, &callback); err != nil {
		slog.Warn("undecodable interaction payload", "error", err)
		return Ephemeral("Sorry, something went wrong processing your request.")
	}
	clog.AddAttribute(ctx, "interaction_type", string(callback.Type))

	switch callback.Type {
	case slack.InteractionTypeViewSubmission:
		return r.handleViewSubmission(ctx, &callback)
	case slack.InteractionTypeBlockActions:
		return r.handleBlockActions(ctx, &callback)
	default:
		return Empty()
	}
}

func (r *Router) handleViewSubmission(ctx context.Context, callback *slack.InteractionCallback) *Response {
	if callback.View.CallbackID != slackclient.CallbackCreateTask {
		return Empty()
	}

	values := slackclient.ExtractSubmission(callback)
	_, err := r.workflow.CreateTask(ctx, orchestrator.CreateTaskInput{
		Title:            values.Title,
		Description:      values.Description,
		StartDate:        values.StartDate,
		DueDate:          values.DueDate,
		AssigneeUserID:   values.AssigneeUserID,
		RequestingUserID: callback.User.ID,
		ChannelID:        values.ChannelID,
	})
	if err != nil {
		clog.AddError(ctx, err)
		// Keep the modal open with the failure under the title field so the
		// submission is not lost.
		return FieldErrors(map[string]string{
			slackclient.BlockTitle: cerr.UserMessage(err),
		})
	}
	return Clear()
}

func (r *Router) handleBlockActions(ctx context.Context, callback *slack.InteractionCallback) *Response {
	if len(callback.ActionCallback.BlockActions) == 0 {
		return Empty()
	}
	action := callback.ActionCallback.BlockActions[0]
	clog.AddAttribute(ctx, "action_id", action.ActionID)

	switch action.ActionID {
	case notify.ActionCreateAnother:
		return r.handleCreateAnother(ctx, callback)
	case notify.ActionUpdateTaskStatus:
		return r.handleStatusChange(ctx, callback, action)
	default:
		return Ephemeral("Action not recognized.")
	}
}

func (r *Router) handleCreateAnother(ctx context.Context, callback *slack.InteractionCallback) *Response {
	if err := r.modals.OpenTaskModal(ctx, callback.TriggerID, callback.Channel.ID); err != nil {
		clog.AddError(ctx, err)
		if cerr.IsCode(err, cerr.FailedPrecondition) {
			return ExpiredTrigger()
		}
		return Ephemeral("❌ Failed to open the task form. Please try /task again.")
	}
	return Empty()
}

func (r *Router) handleStatusChange(ctx context.Context, callback *slack.InteractionCallback, action *slack.BlockAction) *Response {
	taskID, newStatus, err := task.ParseActionValue(action.SelectedOption.Value)
	if err != nil {
		slog.Warn("malformed status action value", "value", action.SelectedOption.Value, "error", err)
		return Ephemeral("Sorry, this control is out of date. Please use a newer message.")
	}

	if _, err := r.workflow.UpdateTaskStatus(ctx, taskID, newStatus); err != nil {
		clog.AddError(ctx, err)
		return Ephemeral(fmt.Sprintf("❌ %s", cerr.UserMessage(err)))
	}
	return Ephemeral(fmt.Sprintf("✅ Task status updated to: %s", newStatus.Label()))
}
