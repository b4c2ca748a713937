package notify

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"

	"github.com/mkhoudour/taskbridge/internal/task"
)

// Action ids the interaction router dispatches on.
const (
	ActionUpdateTaskStatus = "update_task_status"
	ActionCreateAnother    = "create_another_task"
)

const (
	noneDescription = "No description"
	noneAssignee    = "Not assigned"
	noneStartDate   = "No start date"
	noneDueDate     = "No due date"
)

// orEmpty substitutes a placeholder for blank fields so rendered messages
// never show empty sections.
func orEmpty(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}

// formatDate renders an ISO date (YYYY-MM-DD) as DD/MM/YYYY for display.
// Unparseable values pass through untouched.
func formatDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

// TaskBlocks renders the channel-facing creation notification: the task
// fields plus a link button and an inline status dropdown. The dropdown
// options carry composite "taskId:status" values so a click identifies both
// the task and the target status without any server-side session.
func TaskBlocks(t *task.Task) []slack.Block {
	header := slack.NewHeaderBlock(
		slack.NewTextBlockObject(slack.PlainTextType, fmt.Sprintf("Nouvelle tâche créée : %s", t.ID), false, false))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Titre:*\n%s", t.Title), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Description:*\n%s", orEmpty(t.Description, noneDescription)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Personne assignée:*\n%s", orEmpty(t.AssigneeName, noneAssignee)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Date de début:*\n%s", orEmptyDate(t.StartDate, noneStartDate)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Échéance:*\n%s", orEmptyDate(t.DueDate, noneDueDate)), false, false),
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*Statut:*\n%s", t.Status.Label()), false, false),
	}
	section := slack.NewSectionBlock(nil, fields, nil)

	linkButton := slack.NewButtonBlockElement("", "view_in_wrike",
		slack.NewTextBlockObject(slack.PlainTextType, "🔗 Lien vers Wrike", false, false))
	linkButton.URL = t.Permalink
	linkButton.Style = slack.StylePrimary

	actions := slack.NewActionBlock("",
		linkButton,
		statusSelect(t),
	)

	created := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("Created on %s", t.CreatedAt.Format("02/01/2006 15:04")), false, false))

	return []slack.Block{header, section, actions, created}
}

// statusSelect builds the inline status dropdown offered on channel messages.
func statusSelect(t *task.Task) *slack.SelectBlockElement {
	statuses := task.SelectableStatuses()
	options := make([]*slack.OptionBlockObject, 0, len(statuses))
	for _, status := range statuses {
		options = append(options, slack.NewOptionBlockObject(
			task.ActionValue(t.ID, status),
			slack.NewTextBlockObject(slack.PlainTextType, status.Label(), false, false),
			nil,
		))
	}
	return slack.NewOptionsSelectBlockElement(
		slack.OptTypeStatic,
		slack.NewTextBlockObject(slack.PlainTextType, "Mettre à jour le statut", false, false),
		ActionUpdateTaskStatus,
		options...,
	)
}

// UserConfirmationBlocks renders the direct confirmation sent to the user who
// created the task, with a shortcut to create another.
func UserConfirmationBlocks(t *task.Task) []slack.Block {
	text := fmt.Sprintf(
		"✅ *Task Created Successfully!*\n*%s*\n📋 Task ID: %s\n📝 Description: %s\n👤 Assignee: %s\n📅 Due Date: %s",
		t.Title,
		t.ID,
		orEmpty(t.Description, noneDescription),
		orEmpty(t.AssigneeName, noneAssignee),
		orEmptyDate(t.DueDate, noneDueDate),
	)
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	linkButton := slack.NewButtonBlockElement("", "view_in_wrike",
		slack.NewTextBlockObject(slack.PlainTextType, "🔗 View in Wrike", false, false))
	linkButton.URL = t.Permalink
	linkButton.Style = slack.StylePrimary

	againButton := slack.NewButtonBlockElement(ActionCreateAnother, "create_task",
		slack.NewTextBlockObject(slack.PlainTextType, "📋 Create Another Task", false, false))

	actions := slack.NewActionBlock("", linkButton, againButton)
	return []slack.Block{section, actions}
}

// AssigneeBlocks renders the direct notification sent to the assignee.
func AssigneeBlocks(t *task.Task) []slack.Block {
	text := fmt.Sprintf(
		"📌 *Une tâche vous a été assignée*\n*%s*\n📋 Task ID: %s\n📝 Description: %s\n📅 Échéance: %s",
		t.Title,
		t.ID,
		orEmpty(t.Description, noneDescription),
		orEmptyDate(t.DueDate, noneDueDate),
	)
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)

	linkButton := slack.NewButtonBlockElement("", "view_in_wrike",
		slack.NewTextBlockObject(slack.PlainTextType, "🔗 Lien vers Wrike", false, false))
	linkButton.URL = t.Permalink

	actions := slack.NewActionBlock("", linkButton)
	return []slack.Block{section, actions}
}

// StatusChangeBlocks renders the standalone transition notification posted
// when a status changes. It is a new message, not an edit.
func StatusChangeBlocks(t *task.Task, oldStatus, newStatus task.Status) []slack.Block {
	text := fmt.Sprintf(
		"🔄 *Statut mis à jour : %s*\n*%s*\n%s → %s",
		t.ID,
		t.Title,
		oldStatus.Label(),
		newStatus.Label(),
	)
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
	return []slack.Block{section}
}

// FallbackText is the plain-text summary accompanying block messages for
// clients that cannot render blocks. The same text backs both fresh posts and
// in-place edits, so it states the current state rather than an event.
func FallbackText(t *task.Task) string {
	return fmt.Sprintf("Task %s: %q (%s)", t.ID, t.Title, t.Status.Label())
}

func orEmptyDate(iso, placeholder string) string {
	if iso == "" {
		return placeholder
	}
	return formatDate(iso)
}
