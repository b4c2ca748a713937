package slackclient

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

func TestNewTaskModalShape(t *testing.T) {
	modal := NewTaskModal("C1")

	if modal.CallbackID != CallbackCreateTask {
		t.Errorf("CallbackID = %q, want %q", modal.CallbackID, CallbackCreateTask)
	}
	if modal.PrivateMetadata != "C1" {
		t.Errorf("PrivateMetadata = %q, want the originating channel id", modal.PrivateMetadata)
	}
	if len(modal.Blocks.BlockSet) != 5 {
		t.Fatalf("block count = %d, want 5", len(modal.Blocks.BlockSet))
	}

	rendered, err := json.Marshal(modal)
	if err != nil {
		t.Fatalf("failed to marshal modal: %v", err)
	}
	for _, want := range []string{
		BlockTitle, BlockDescription, BlockStartDate, BlockDueDate, BlockAssignee,
		ActionTitleInput, ActionDescriptionInput, ActionStartDateInput, ActionDueDateInput, ActionAssigneeInput,
	} {
		if !strings.Contains(string(rendered), want) {
			t.Errorf("modal missing id %q", want)
		}
	}

	// Only the title is mandatory.
	title, ok := modal.Blocks.BlockSet[0].(*slack.InputBlock)
	if !ok {
		t.Fatalf("first block is %T, want *slack.InputBlock", modal.Blocks.BlockSet[0])
	}
	if title.Optional {
		t.Errorf("title block is optional, want required")
	}
	for i, block := range modal.Blocks.BlockSet[1:] {
		input, ok := block.(*slack.InputBlock)
		if !ok {
			t.Fatalf("block %d is %T, want *slack.InputBlock", i+1, block)
		}
		if !input.Optional {
			t.Errorf("block %s is required, want optional", input.BlockID)
		}
	}
}

func TestExtractSubmission(t *testing.T) {
	callback := &slack.InteractionCallback{}
	callback.View.PrivateMetadata = "C1"
	callback.View.State = &slack.ViewState{
		Values: map[string]map[string]slack.BlockAction{
			BlockTitle:       {ActionTitleInput: {Value: "Ship v2"}},
			BlockDescription: {ActionDescriptionInput: {Value: "details"}},
			BlockStartDate:   {ActionStartDateInput: {SelectedDate: "2026-09-01"}},
			BlockDueDate:     {ActionDueDateInput: {SelectedDate: "2026-09-15"}},
			BlockAssignee:    {ActionAssigneeInput: {SelectedUser: "U2"}},
		},
	}

	got := ExtractSubmission(callback)
	want := SubmittedValues{
		Title:          "Ship v2",
		Description:    "details",
		StartDate:      "2026-09-01",
		DueDate:        "2026-09-15",
		AssigneeUserID: "U2",
		ChannelID:      "C1",
	}
	if got != want {
		t.Errorf("ExtractSubmission = %+v, want %+v", got, want)
	}
}

func TestExtractSubmissionMissingFields(t *testing.T) {
	callback := &slack.InteractionCallback{}
	callback.View.State = &slack.ViewState{
		Values: map[string]map[string]slack.BlockAction{
			BlockTitle: {ActionTitleInput: {Value: "Just a title"}},
		},
	}

	got := ExtractSubmission(callback)
	if got.Title != "Just a title" {
		t.Errorf("Title = %q, want extracted value", got.Title)
	}
	if got.Description != "" || got.StartDate != "" || got.DueDate != "" || got.AssigneeUserID != "" {
		t.Errorf("missing fields = %+v, want empty defaults", got)
	}
}
