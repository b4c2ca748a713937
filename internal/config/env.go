package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3100"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
}

type SlackEnv struct {
	BotToken string `envconfig:"SLACK_BOT_TOKEN" required:"true"`
	// SigningSecret verifies that inbound requests really come from Slack.
	// Empty disables verification, for local development only.
	SigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
}

type WrikeEnv struct {
	AccessToken string `envconfig:"WRIKE_ACCESS_TOKEN" required:"true"`
	APIURL      string `envconfig:"WRIKE_API_URL"`
	// DefaultFolderID receives tasks from channels with no mapping.
	DefaultFolderID string `envconfig:"WRIKE_DEFAULT_FOLDER_ID"`
	// Workspace custom-field ids for duplicating assignee and description
	// onto the Wrike task. Empty disables the field.
	AssigneeFieldID    string `envconfig:"WRIKE_ASSIGNEE_FIELD_ID"`
	DescriptionFieldID string `envconfig:"WRIKE_DESCRIPTION_FIELD_ID"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".taskbridge/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"taskbridge/"`
	S3Region string `envconfig:"S3_REGION" default:"eu-west-1"`
	// MappingFile is the channel-to-folder routing table, hot-reloaded on
	// change. Empty routes everything to the default folder.
	MappingFile string `envconfig:"CHANNEL_MAPPING_FILE" default:""`
}

type Env struct {
	BaseEnv
	SlackEnv
	WrikeEnv
	StorageEnv
}

const namespace = "TASKBRIDGE"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
