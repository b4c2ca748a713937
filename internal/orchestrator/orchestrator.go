// Package orchestrator drives the task workflows: creation from a modal
// submission, status updates from the inline dropdown, and the read-only
// listing for the ops API. Wrike is the source of truth; the local store and
// Slack messages are best-effort mirrors that never fail a workflow.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/sourcegraph/conc"

	"github.com/mkhoudour/taskbridge/internal/notify"
	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/internal/wrike"
	"github.com/mkhoudour/taskbridge/pkg/background"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
	"github.com/mkhoudour/taskbridge/pkg/clog"
)

// WrikeAPI is the slice of the Wrike client the orchestrator needs.
type WrikeAPI interface {
	TestConnection(ctx context.Context) error
	CreateTaskInFolder(ctx context.Context, folderID string, nt wrike.NewTask) (*wrike.CreatedTask, error)
	SetTaskDates(ctx context.Context, taskID, start, due string) error
	UpdateTaskStatus(ctx context.Context, taskID string, update wrike.StatusUpdate) error
	ResolveTaskID(ctx context.Context, displayID string) (string, error)
}

// SlackAPI is the slice of the Slack client the orchestrator needs.
type SlackAPI interface {
	PostMessage(ctx context.Context, channelID, fallbackText string, blocks []slack.Block) (*task.MessageRef, error)
	UpdateMessage(ctx context.Context, ref *task.MessageRef, fallbackText string, blocks []slack.Block) error
	UserDisplayName(ctx context.Context, userID string) string
}

// FolderResolver routes a channel to its Wrike folder.
type FolderResolver interface {
	FolderFor(channelID string) (folderID string, ok bool)
}

type Orchestrator struct {
	wrike   WrikeAPI
	slack   SlackAPI
	folders FolderResolver
	repo    task.Repository

	// spawn runs mirror work after the synchronous path returns. Tests swap
	// it for a synchronous runner.
	spawn func(label string, fn func(ctx context.Context) error) string
}

func New(w WrikeAPI, s SlackAPI, folders FolderResolver, repo task.Repository) *Orchestrator {
	return &Orchestrator{
		wrike:   w,
		slack:   s,
		folders: folders,
		repo:    repo,
		spawn:   background.Go,
	}
}

// CreateTaskInput is a modal submission plus its request metadata.
type CreateTaskInput struct {
	Title            string
	Description      string
	StartDate        string
	DueDate          string
	AssigneeUserID   string
	RequestingUserID string
	ChannelID        string
}

// CreateTaskResult is returned as soon as the task exists in Wrike.
// Notifications and persistence continue in the background.
type CreateTaskResult struct {
	TaskID  string
	TaskURL string
}

// untitledTaskTitle replaces a blank submitted title. Slack marks the title
// field required, but whitespace-only values still get through.
const untitledTaskTitle = "Untitled Task"

// CreateTask files a task in Wrike and fans notifications out. The Wrike
// calls are synchronous and fatal; everything after the task exists upstream
// is background, best-effort work.
func (o *Orchestrator) CreateTask(ctx context.Context, in CreateTaskInput) (*CreateTaskResult, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = untitledTaskTitle
	}

	folderID, ok := o.folders.FolderFor(in.ChannelID)
	if !ok {
		return nil, cerr.NewError(cerr.FailedPrecondition,
			"This channel is not linked to a Wrike folder and no default folder is configured.",
			fmt.Errorf("no folder mapping for channel %s", in.ChannelID))
	}
	clog.AddAttribute(ctx, "folder_id", folderID)

	if err := o.wrike.TestConnection(ctx); err != nil {
		return nil, wrapWrikeError("Could not reach Wrike. Please try again later.", err)
	}

	// Best-effort name resolution. The raw id still renders if Slack fails.
	assigneeName := ""
	if in.AssigneeUserID != "" {
		assigneeName = o.slack.UserDisplayName(ctx, in.AssigneeUserID)
	}

	created, err := o.wrike.CreateTaskInFolder(ctx, folderID, wrike.NewTask{
		Title:       title,
		Description: in.Description,
		Assignee:    assigneeName,
	})
	if err != nil {
		return nil, wrapWrikeError("Failed to create the task in Wrike.", err)
	}
	clog.AddAttributes(ctx, map[string]any{"task_id": created.DisplayID, "wrike_id": created.ID})

	// Dates are cosmetic relative to the task existing. A failure is logged
	// and the task ships without them.
	if in.StartDate != "" && in.DueDate != "" {
		if err := o.wrike.SetTaskDates(ctx, created.ID, in.StartDate, in.DueDate); err != nil {
			slog.Warn("failed to set task dates, task created without them",
				"task_id", created.DisplayID, "error", err)
		}
	}

	now := time.Now().UTC()
	t := &task.Task{
		ID:             created.DisplayID,
		WrikeID:        created.ID,
		Title:          title,
		Description:    in.Description,
		Status:         task.StatusNew,
		StartDate:      in.StartDate,
		DueDate:        in.DueDate,
		AssigneeUserID: in.AssigneeUserID,
		AssigneeName:   assigneeName,
		ChannelID:      in.ChannelID,
		FolderID:       folderID,
		Permalink:      created.Permalink,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	o.spawn("task.create.notify", func(ctx context.Context) error {
		o.notifyCreated(ctx, t, in.RequestingUserID)
		if err := o.repo.Create(ctx, t); err != nil {
			slog.Error("failed to persist task mirror", "task_id", t.ID, "error", err)
		}
		return nil
	})

	return &CreateTaskResult{TaskID: created.DisplayID, TaskURL: created.Permalink}, nil
}

// notifyCreated posts the channel, requester and assignee messages
// concurrently. Each branch fails on its own; message refs from successful
// posts land on t for later edits.
func (o *Orchestrator) notifyCreated(ctx context.Context, t *task.Task, requestingUserID string) {
	var wg conc.WaitGroup

	if t.ChannelID != "" {
		wg.Go(func() {
			ref, err := o.slack.PostMessage(ctx, t.ChannelID, notify.FallbackText(t), notify.TaskBlocks(t))
			if err != nil {
				slog.Warn("failed to post channel notification", "task_id", t.ID, "channel_id", t.ChannelID, "error", err)
				return
			}
			t.ChannelMessage = ref
		})
	}
	if requestingUserID != "" {
		wg.Go(func() {
			ref, err := o.slack.PostMessage(ctx, requestingUserID, notify.FallbackText(t), notify.UserConfirmationBlocks(t))
			if err != nil {
				slog.Warn("failed to post user confirmation", "task_id", t.ID, "user_id", requestingUserID, "error", err)
				return
			}
			t.UserMessage = ref
		})
	}
	if t.AssigneeUserID != "" && t.AssigneeUserID != requestingUserID {
		wg.Go(func() {
			ref, err := o.slack.PostMessage(ctx, t.AssigneeUserID, notify.FallbackText(t), notify.AssigneeBlocks(t))
			if err != nil {
				slog.Warn("failed to post assignee notification", "task_id", t.ID, "assignee", t.AssigneeUserID, "error", err)
				return
			}
			t.AssigneeMessage = ref
		})
	}

	wg.Wait()
}

// UpdateTaskStatus writes a status change to Wrike and mirrors it. The
// upstream write is fatal; the local record, message edits and transition
// notifications are background best-effort.
func (o *Orchestrator) UpdateTaskStatus(ctx context.Context, taskID string, newStatus task.Status) (*task.Task, error) {
	clog.AddAttributes(ctx, map[string]any{"task_id": taskID, "new_status": string(newStatus)})

	// The mirror may be missing (created during an outage, or never saved).
	// The update still proceeds; only the previous status is unknown.
	previous := task.StatusUnknown
	t, err := o.repo.Get(ctx, taskID)
	if err != nil {
		if !cerr.IsCode(err, cerr.NotFound) {
			slog.Warn("failed to load task mirror", "task_id", taskID, "error", err)
		}
		t = &task.Task{ID: taskID, Status: task.StatusUnknown}
	} else {
		previous = t.Status
	}

	wrikeID := t.WrikeID
	if wrikeID == "" {
		wrikeID, err = o.wrike.ResolveTaskID(ctx, taskID)
		if err != nil {
			return nil, wrapWrikeError("Could not find this task in Wrike.", err)
		}
		t.WrikeID = wrikeID
	}

	// Custom status and main status are mutually exclusive on the wire.
	update := wrike.StatusUpdate{}
	if customID := newStatus.WrikeCustomStatusID(); customID != "" {
		update.CustomStatusID = customID
	} else {
		update.Status = newStatus.WrikeStatus()
	}
	if err := o.wrike.UpdateTaskStatus(ctx, wrikeID, update); err != nil {
		return nil, wrapWrikeError("Failed to update the task status in Wrike.", err)
	}

	t.Status = newStatus
	t.UpdatedAt = time.Now().UTC()

	updated := *t
	o.spawn("task.status.mirror", func(ctx context.Context) error {
		o.mirrorStatusChange(ctx, &updated, previous, newStatus)
		return nil
	})

	return t, nil
}

// mirrorStatusChange updates the local record, edits previously posted
// messages in place, and posts standalone transition notifications. Every
// step is independent; one failure never blocks the others.
func (o *Orchestrator) mirrorStatusChange(ctx context.Context, t *task.Task, oldStatus, newStatus task.Status) {
	if err := o.repo.Update(ctx, t); err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			if err := o.repo.Create(ctx, t); err != nil {
				slog.Warn("failed to create task mirror after status update", "task_id", t.ID, "error", err)
			}
		} else {
			slog.Warn("failed to update task mirror", "task_id", t.ID, "error", err)
		}
	}

	var wg conc.WaitGroup

	if t.ChannelMessage != nil {
		wg.Go(func() {
			if err := o.slack.UpdateMessage(ctx, t.ChannelMessage, notify.FallbackText(t), notify.TaskBlocks(t)); err != nil {
				slog.Warn("failed to edit channel message", "task_id", t.ID, "error", err)
			}
		})
	}
	if t.UserMessage != nil {
		wg.Go(func() {
			if err := o.slack.UpdateMessage(ctx, t.UserMessage, notify.FallbackText(t), notify.UserConfirmationBlocks(t)); err != nil {
				slog.Warn("failed to edit user message", "task_id", t.ID, "error", err)
			}
		})
	}
	if t.ChannelID != "" {
		wg.Go(func() {
			blocks := notify.StatusChangeBlocks(t, oldStatus, newStatus)
			if _, err := o.slack.PostMessage(ctx, t.ChannelID, statusChangeText(t, newStatus), blocks); err != nil {
				slog.Warn("failed to post status change to channel", "task_id", t.ID, "error", err)
			}
		})
	}
	if t.AssigneeUserID != "" {
		wg.Go(func() {
			blocks := notify.StatusChangeBlocks(t, oldStatus, newStatus)
			if _, err := o.slack.PostMessage(ctx, t.AssigneeUserID, statusChangeText(t, newStatus), blocks); err != nil {
				slog.Warn("failed to post status change to assignee", "task_id", t.ID, "error", err)
			}
		})
	}

	wg.Wait()
}

// ListTasks returns the mirrored tasks, optionally filtered by channel.
func (o *Orchestrator) ListTasks(ctx context.Context, channelID string, limit int) ([]*task.Task, error) {
	return o.repo.List(ctx, channelID, limit)
}

func statusChangeText(t *task.Task, newStatus task.Status) string {
	return fmt.Sprintf("Task %s status changed to %s", t.ID, newStatus.Label())
}

// wrapWrikeError attaches a code and a user-presentable message to a Wrike
// failure. Token and permission problems get specific messages so the
// operator knows which knob to turn.
func wrapWrikeError(genericMsg string, err error) error {
	switch {
	case errors.Is(err, wrike.ErrInvalidToken):
		return cerr.NewError(cerr.Unauthenticated,
			"Wrike rejected the access token. Please update the configured token.", err)
	case errors.Is(err, wrike.ErrForbidden):
		return cerr.NewError(cerr.PermissionDenied,
			"Access to the Wrike folder was denied. Please check folder permissions.", err)
	case cerr.IsTimeout(err):
		return cerr.NewError(cerr.DeadlineExceeded,
			"Wrike took too long to respond. Please try again.", err)
	}
	var apiErr *wrike.APIError
	if errors.As(err, &apiErr) {
		return cerr.NewError(cerr.Unavailable,
			fmt.Sprintf("%s (Wrike returned %d)", genericMsg, apiErr.Status), err)
	}
	return cerr.NewError(cerr.Unavailable, genericMsg, err)
}
