package slackclient

import (
	"github.com/slack-go/slack"
)

// Block and action ids shared between the modal builder and the submission
// extractor. Changing one side without the other silently drops the field.
const (
	CallbackCreateTask = "create_task_modal"

	BlockTitle       = "task_title"
	BlockDescription = "task_description"
	BlockStartDate   = "task_start_date"
	BlockDueDate     = "task_due_date"
	BlockAssignee    = "task_assignee"

	ActionTitleInput       = "title_input"
	ActionDescriptionInput = "description_input"
	ActionStartDateInput   = "start_date_input"
	ActionDueDateInput     = "due_date_input"
	ActionAssigneeInput    = "assignee_input"
)

// NewTaskModal builds the task-creation modal. The originating channel id
// rides along in private metadata so the submission can be routed back to
// the channel the command was typed in.
func NewTaskModal(channelID string) slack.ModalViewRequest {
	titleInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Enter task title", false, false),
		ActionTitleInput,
	)

	descriptionInput := slack.NewPlainTextInputBlockElement(
		slack.NewTextBlockObject(slack.PlainTextType, "Enter task description", false, false),
		ActionDescriptionInput,
	)
	descriptionInput.Multiline = true

	startDateInput := slack.NewDatePickerBlockElement(ActionStartDateInput)
	startDateInput.Placeholder = slack.NewTextBlockObject(slack.PlainTextType, "Select a start date", false, false)

	dueDateInput := slack.NewDatePickerBlockElement(ActionDueDateInput)
	dueDateInput.Placeholder = slack.NewTextBlockObject(slack.PlainTextType, "Select a due date", false, false)

	assigneeInput := slack.NewOptionsSelectBlockElement(
		slack.OptTypeUser,
		slack.NewTextBlockObject(slack.PlainTextType, "Select an assignee", false, false),
		ActionAssigneeInput,
	)

	titleBlock := slack.NewInputBlock(BlockTitle,
		slack.NewTextBlockObject(slack.PlainTextType, "Title", false, false), nil, titleInput)

	descriptionBlock := slack.NewInputBlock(BlockDescription,
		slack.NewTextBlockObject(slack.PlainTextType, "Description", false, false), nil, descriptionInput)
	descriptionBlock.Optional = true

	startDateBlock := slack.NewInputBlock(BlockStartDate,
		slack.NewTextBlockObject(slack.PlainTextType, "Start Date", false, false), nil, startDateInput)
	startDateBlock.Optional = true

	dueDateBlock := slack.NewInputBlock(BlockDueDate,
		slack.NewTextBlockObject(slack.PlainTextType, "Due Date", false, false), nil, dueDateInput)
	dueDateBlock.Optional = true

	assigneeBlock := slack.NewInputBlock(BlockAssignee,
		slack.NewTextBlockObject(slack.PlainTextType, "Assignee", false, false), nil, assigneeInput)
	assigneeBlock.Optional = true

	return slack.ModalViewRequest{
		Type:            slack.VTModal,
		CallbackID:      CallbackCreateTask,
		PrivateMetadata: channelID,
		Title:           slack.NewTextBlockObject(slack.PlainTextType, "Create New Task", false, false),
		Submit:          slack.NewTextBlockObject(slack.PlainTextType, "Create Task", false, false),
		Close:           slack.NewTextBlockObject(slack.PlainTextType, "Cancel", false, false),
		Blocks: slack.Blocks{BlockSet: []slack.Block{
			titleBlock,
			descriptionBlock,
			startDateBlock,
			dueDateBlock,
			assigneeBlock,
		}},
	}
}

// SubmittedValues is the flat form extracted from a modal submission.
type SubmittedValues struct {
	Title          string
	Description    string
	StartDate      string
	DueDate        string
	AssigneeUserID string
	ChannelID      string
}

// ExtractSubmission pulls field values out of the nested state map of a
// view_submission payload. Missing blocks or actions yield empty strings
// rather than panics; old clients can submit stale views.
func ExtractSubmission(callback *slack.InteractionCallback) SubmittedValues {
	var values map[string]map[string]slack.BlockAction
	if callback.View.State != nil {
		values = callback.View.State.Values
	}

	get := func(blockID, actionID string) slack.BlockAction {
		if block, ok := values[blockID]; ok {
			return block[actionID]
		}
		return slack.BlockAction{}
	}

	return SubmittedValues{
		Title:          get(BlockTitle, ActionTitleInput).Value,
		Description:    get(BlockDescription, ActionDescriptionInput).Value,
		StartDate:      get(BlockStartDate, ActionStartDateInput).SelectedDate,
		DueDate:        get(BlockDueDate, ActionDueDateInput).SelectedDate,
		AssigneeUserID: get(BlockAssignee, ActionAssigneeInput).SelectedUser,
		ChannelID:      callback.View.PrivateMetadata,
	}
}
