package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ConfigManager holds the active configuration of a long running process.
// The file is only ever read; updates come from outside, such as a mounted
// ConfigMap or a deploy tool.
type ConfigManager interface {
	// GetConfig returns the active configuration. Callers must not modify it.
	GetConfig() *Config

	// ReloadConfig reads the file again and applies it if it is valid.
	// An invalid file leaves the previous configuration active.
	ReloadConfig() error

	// WatchConfig reloads the configuration whenever the file changes.
	// Blocks until the context is cancelled.
	WatchConfig(ctx context.Context) error
}

type configManager struct {
	mu     sync.RWMutex
	config *Config
	path   string

	watching sync.Mutex
}

// NewConfigManager loads and validates the file at path
func NewConfigManager(path string) (ConfigManager, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	cm := &configManager{path: absPath}
	if err := cm.ReloadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}
	return cm, nil
}

func (cm *configManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

func (cm *configManager) ReloadConfig() error {
	cfg, err := LoadConfig(WithConfigPath(cm.path))
	if err != nil {
		return err
	}

	cm.mu.Lock()
	previous := cm.config
	cm.config = cfg
	cm.mu.Unlock()

	if previous != nil {
		if previous.Storage.Type != cfg.Storage.Type || previous.Server.Address != cfg.Server.Address {
			slog.Warn("Storage and server settings only take effect after a restart", "path", cm.path)
		}
		slog.Info("Configuration reloaded", "path", cm.path)
	}
	return nil
}

// WatchConfig watches the directory holding the file rather than the file
// itself, so atomic replacements and ConfigMap symlink swaps are both seen.
func (cm *configManager) WatchConfig(ctx context.Context) error {
	if !cm.watching.TryLock() {
		return fmt.Errorf("config watcher is already running")
	}
	defer cm.watching.Unlock()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Warn("Failed to close config watcher", "error", err)
		}
	}()

	dir := filepath.Dir(cm.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	slog.Info("Watching configuration file", "path", cm.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			if !cm.affects(event) {
				continue
			}
			slog.Debug("Config change detected", "event", event.String())
			if err := cm.ReloadConfig(); err != nil {
				slog.Error("Failed to reload configuration, keeping the previous one", "path", cm.path, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			slog.Error("Config watcher error", "error", err)
		}
	}
}

// affects reports whether event may have changed the watched file
func (cm *configManager) affects(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Clean(event.Name) == cm.path {
		return true
	}
	// Kubernetes swaps the ..data symlink when a mounted ConfigMap changes
	return strings.HasPrefix(filepath.Base(event.Name), "..data")
}
