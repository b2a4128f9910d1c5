// Package config resolves the data directory, the optional .mcp-tasks.edn
// project file, and server settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"olympos.io/encoding/edn"
)

// Well-known names under the base directory.
const (
	DataDirName       = ".mcp-tasks"
	TasksFileName     = "tasks.ednl"
	CompleteFileName  = "complete.ednl"
	ConfigFileName    = ".mcp-tasks.edn"
	ExecStateFileName = ".mcp-tasks-current.edn"
	LockFileName      = ".lock"
)

// Flags are the recognized options of .mcp-tasks.edn.
type Flags struct {
	UseGit             bool   `edn:"use-git?"`
	BranchManagement   bool   `edn:"branch-management?"`
	WorktreeManagement bool   `edn:"worktree-management?"`
	BaseBranch         string `edn:"base-branch"`
}

// Config is the resolved configuration for one base directory.
type Config struct {
	BaseDir string
	Flags   Flags

	Server ServerConfig
	Log    LogConfig
}

// ServerConfig holds MCP server metadata.
type ServerConfig struct {
	Name    string
	Version string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string // debug, info, warn, error
	File  string // optional rotating log file
}

// Load resolves configuration for baseDir. The config file is optional;
// absence means all git integration is off.
func Load(baseDir string) (*Config, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base dir: %w", err)
	}

	flags, err := readFlags(filepath.Join(abs, ConfigFileName))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BaseDir: abs,
		Flags:   flags,
		Server: ServerConfig{
			Name:    "mcp-tasks",
			Version: "0.1.0",
		},
		Log: LogConfig{
			Level: envOr("MCP_TASKS_LOG_LEVEL", "info"),
			File:  os.Getenv("MCP_TASKS_LOG_FILE"),
		},
	}
	return cfg, nil
}

// Reload re-reads the flag file in place. Used by the config watcher while
// serving; callers must hold the engine's write gate.
func (c *Config) Reload() error {
	flags, err := readFlags(filepath.Join(c.BaseDir, ConfigFileName))
	if err != nil {
		return err
	}
	c.Flags = flags
	return nil
}

func readFlags(path string) (Flags, error) {
	var flags Flags
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return flags, nil
		}
		return flags, fmt.Errorf("read %s: %w", path, err)
	}
	if err := edn.Unmarshal(data, &flags); err != nil {
		return flags, fmt.Errorf("parse %s: %w", path, err)
	}
	// Worktree lifecycle needs branch derivation underneath it.
	if flags.WorktreeManagement {
		flags.BranchManagement = true
	}
	return flags, nil
}

// DataDir returns <base>/.mcp-tasks.
func (c *Config) DataDir() string {
	return filepath.Join(c.BaseDir, DataDirName)
}

// TasksFile returns the live record file path.
func (c *Config) TasksFile() string {
	return filepath.Join(c.DataDir(), TasksFileName)
}

// CompleteFile returns the archive record file path.
func (c *Config) CompleteFile() string {
	return filepath.Join(c.DataDir(), CompleteFileName)
}

// ConfigFile returns the .mcp-tasks.edn path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.BaseDir, ConfigFileName)
}

// LockFile returns the single-process lock path.
func (c *Config) LockFile() string {
	return filepath.Join(c.DataDir(), LockFileName)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
