package task

import (
	"fmt"
	"strings"
)

// Status is the domain status of a task. It is tracked locally and mirrored
// to Wrike through a lossy mapping: Wrike only distinguishes a handful of
// main statuses, so several domain statuses collapse to "Active" unless a
// workspace custom status exists for them.
type Status string

const (
	StatusNew        Status = "New"
	StatusPlanned    Status = "Planned"
	StatusInProgress Status = "InProgress"
	StatusInReview   Status = "InReview"
	StatusOnHold     Status = "OnHold"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"

	// StatusUnknown stands in for the previous status when the local mirror
	// has no record of the task.
	StatusUnknown Status = "Unknown"
)

// statusLabels is the single source of truth for display labels, shared by
// creation and update notifications.
var statusLabels = map[Status]string{
	StatusNew:        "🔵 Nouveau",
	StatusPlanned:    "🟦 Planifié",
	StatusInProgress: "🟡 En cours",
	StatusInReview:   "🟠 En révision",
	StatusOnHold:     "🔴 Bloqué",
	StatusCompleted:  "✅ Complétée",
	StatusCancelled:  "❌ Annulé",
}

// wrikeMainStatus collapses domain statuses to Wrike's coarse main status.
var wrikeMainStatus = map[Status]string{
	StatusNew:        "Active",
	StatusPlanned:    "Active",
	StatusInProgress: "Active",
	StatusInReview:   "Active",
	StatusOnHold:     "Active",
	StatusCompleted:  "Completed",
	StatusCancelled:  "Cancelled",
}

// wrikeCustomStatusID maps domain statuses to workspace custom-status ids
// where the workflow defines one. Statuses absent here are written using the
// main status instead.
var wrikeCustomStatusID = map[Status]string{
	StatusPlanned:    "IEABCJBLJMBKXLWE",
	StatusInProgress: "IEABCJBLJMBKXLWF",
	StatusInReview:   "IEABCJBLJMBKXLWG",
	StatusOnHold:     "IEABCJBLJMBKXLWH",
}

// Label returns the display label for s, or the raw value for statuses the
// table does not know.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// WrikeStatus returns the Wrike main status for s. Unknown statuses map to
// "Active", matching Wrike's default for open tasks.
func (s Status) WrikeStatus() string {
	if ws, ok := wrikeMainStatus[s]; ok {
		return ws
	}
	return "Active"
}

// WrikeCustomStatusID returns the workspace custom-status id for s, or ""
// when the status has none and the main status must be used.
func (s Status) WrikeCustomStatusID() string {
	return wrikeCustomStatusID[s]
}

// SelectableStatuses lists the statuses offered in the status dropdown, in
// display order.
func SelectableStatuses() []Status {
	return []Status{
		StatusNew,
		StatusPlanned,
		StatusInProgress,
		StatusInReview,
		StatusOnHold,
		StatusCompleted,
		StatusCancelled,
	}
}

// ActionValue encodes a task id and target status into the composite value
// carried by status-dropdown options.
func ActionValue(taskID string, status Status) string {
	return taskID + ":" + string(status)
}

// ParseActionValue splits a composite "taskId:status" action value. Both
// parts must be present and non-blank.
func ParseActionValue(value string) (string, Status, error) {
	taskID, status, found := strings.Cut(value, ":")
	if !found {
		return "", "", fmt.Errorf("malformed action value %q: missing separator", value)
	}
	taskID = strings.TrimSpace(taskID)
	status = strings.TrimSpace(status)
	if taskID == "" || status == "" {
		return "", "", fmt.Errorf("malformed action value %q: blank task id or status", value)
	}
	return taskID, Status(status), nil
}
