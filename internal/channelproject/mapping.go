package channelproject

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Mapping routes a Slack channel to the Wrike folder its tasks are filed in.
type Mapping struct {
	ChannelID string `yaml:"channel_id"`
	FolderID  string `yaml:"folder_id"`
}

type mappingFile struct {
	DefaultFolderID string    `yaml:"default_folder_id"`
	Mappings        []Mapping `yaml:"mappings"`
}

// Store holds the channel-to-folder routing table. The table is loaded from a
// YAML file and can be reloaded in place while lookups continue.
type Store struct {
	path string

	mu            sync.RWMutex
	defaultFolder string
	byChannel     map[string]string
}

// NewStore loads the routing table from path. A missing file is not an
// error when a default folder is configured: every channel then routes to
// the default.
func NewStore(path, defaultFolderID string) (*Store, error) {
	s := &Store{
		path:          path,
		defaultFolder: defaultFolderID,
		byChannel:     make(map[string]string),
	}
	if path == "" {
		if defaultFolderID == "" {
			return nil, fmt.Errorf("no mapping file and no default folder configured")
		}
		return s, nil
	}
	if err := s.Reload(); err != nil {
		if os.IsNotExist(err) && defaultFolderID != "" {
			slog.Warn("channel mapping file not found, using default folder only", "path", path)
			return s, nil
		}
		return nil, err
	}
	return s, nil
}

// Reload re-reads the mapping file and swaps the table atomically. Lookups
// during a reload see either the old table or the new one, never a partial
// mix.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var file mappingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse mapping file %s: %w", s.path, err)
	}

	byChannel := make(map[string]string, len(file.Mappings))
	for _, m := range file.Mappings {
		if m.ChannelID == "" || m.FolderID == "" {
			slog.Warn("skipping incomplete channel mapping", "channel_id", m.ChannelID, "folder_id", m.FolderID)
			continue
		}
		byChannel[m.ChannelID] = m.FolderID
	}

	s.mu.Lock()
	s.byChannel = byChannel
	if file.DefaultFolderID != "" {
		s.defaultFolder = file.DefaultFolderID
	}
	s.mu.Unlock()

	slog.Info("channel mapping loaded", "path", s.path, "mappings", len(byChannel))
	return nil
}

// FolderFor returns the Wrike folder for channelID, falling back to the
// default folder for unmapped channels. ok is false only when no default is
// configured either.
func (s *Store) FolderFor(channelID string) (folderID string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, mapped := s.byChannel[channelID]; mapped {
		return id, true
	}
	if s.defaultFolder != "" {
		return s.defaultFolder, true
	}
	return "", false
}

// Mappings returns a snapshot of the table, for the ops API.
func (s *Store) Mappings() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Mapping, 0, len(s.byChannel))
	for channelID, folderID := range s.byChannel {
		out = append(out, Mapping{ChannelID: channelID, FolderID: folderID})
	}
	return out
}
