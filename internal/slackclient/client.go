package slackclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/mkhoudour/taskbridge/internal/task"
	"github.com/mkhoudour/taskbridge/pkg/cerr"
)

// Posts and edits run in the background and get a generous timeout. The
// modal open is different: it sits on the synchronous slash-command path,
// which Slack voids unless it is acknowledged within about 3 seconds, so
// views.open gets a deadline below that.
const (
	defaultTimeout   = 8 * time.Second
	modalOpenTimeout = 2 * time.Second
)

// Client wraps the Slack Web API for the calls the bridge makes: opening the
// creation modal, posting and editing notifications, and resolving display
// names.
type Client struct {
	api *slack.Client

	// modalTimeout bounds views.open. Tests shorten it.
	modalTimeout time.Duration
}

func New(botToken string) *Client {
	return NewWithAPI(slack.New(botToken, slack.OptionHTTPClient(&http.Client{Timeout: defaultTimeout})))
}

// NewWithAPI wires a pre-built API client, for tests.
func NewWithAPI(api *slack.Client) *Client {
	return &Client{api: api, modalTimeout: modalOpenTimeout}
}

// OpenTaskModal opens the task-creation modal against triggerID. Trigger ids
// expire seconds after Slack issues them; an expired one comes back as a
// distinct error code so the router can tell the user to retry instead of
// showing a generic failure.
func (c *Client) OpenTaskModal(ctx context.Context, triggerID, channelID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.modalTimeout)
	defer cancel()

	if _, err := c.api.OpenViewContext(ctx, triggerID, NewTaskModal(channelID)); err != nil {
		if strings.Contains(err.Error(), "expired_trigger_id") {
			return cerr.NewError(cerr.FailedPrecondition,
				"This action expired. Please run /task again.",
				fmt.Errorf("trigger id expired: %w", err))
		}
		return fmt.Errorf("failed to open task modal: %w", err)
	}
	return nil
}

// PostMessage posts blocks to a channel or user and returns the reference
// needed to edit the message later.
func (c *Client) PostMessage(ctx context.Context, channelID, fallbackText string, blocks []slack.Block) (*task.MessageRef, error) {
	channel, timestamp, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(fallbackText, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to post message to %s: %w", channelID, err)
	}
	return &task.MessageRef{Channel: channel, Timestamp: timestamp}, nil
}

// UpdateMessage edits a previously posted message in place.
func (c *Client) UpdateMessage(ctx context.Context, ref *task.MessageRef, fallbackText string, blocks []slack.Block) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, ref.Channel, ref.Timestamp,
		slack.MsgOptionText(fallbackText, false),
		slack.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("failed to update message %s/%s: %w", ref.Channel, ref.Timestamp, err)
	}
	return nil
}

// PostEphemeral posts a message only userID can see.
func (c *Client) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	_, err := c.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post ephemeral to %s: %w", userID, err)
	}
	return nil
}

// UserDisplayName resolves a user id to a human-readable name, preferring the
// profile display name, then the real name, then the account name. On any
// failure the raw id is returned so callers always have something to render.
func (c *Client) UserDisplayName(ctx context.Context, userID string) string {
	user, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return userID
	}
	if user.Profile.DisplayName != "" {
		return user.Profile.DisplayName
	}
	if user.Profile.RealName != "" {
		return user.Profile.RealName
	}
	if user.Name != "" {
		return user.Name
	}
	return userID
}
