package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.False(t, cfg.Flags.UseGit)
	assert.False(t, cfg.Flags.BranchManagement)
	assert.False(t, cfg.Flags.WorktreeManagement)
	assert.Equal(t, "mcp-tasks", cfg.Server.Name)
}

func TestLoadReadsFlags(t *testing.T) {
	dir := t.TempDir()
	content := `{:use-git? true :branch-management? true :base-branch "develop"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Flags.UseGit)
	assert.True(t, cfg.Flags.BranchManagement)
	assert.False(t, cfg.Flags.WorktreeManagement)
	assert.Equal(t, "develop", cfg.Flags.BaseBranch)
}

func TestWorktreeImpliesBranchManagement(t *testing.T) {
	dir := t.TempDir()
	content := `{:use-git? true :worktree-management? true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Flags.WorktreeManagement)
	assert.True(t, cfg.Flags.BranchManagement)
}

func TestLoadRejectsMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{:use-git?"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.False(t, cfg.Flags.UseGit)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{:use-git? true}`), 0o644))
	require.NoError(t, cfg.Reload())
	assert.True(t, cfg.Flags.UseGit)
}

func TestPathHelpers(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.BaseDir, ".mcp-tasks"), cfg.DataDir())
	assert.Equal(t, filepath.Join(cfg.DataDir(), "tasks.ednl"), cfg.TasksFile())
	assert.Equal(t, filepath.Join(cfg.DataDir(), "complete.ednl"), cfg.CompleteFile())
	assert.Equal(t, filepath.Join(cfg.BaseDir, ".mcp-tasks.edn"), cfg.ConfigFile())
	assert.Equal(t, filepath.Join(cfg.DataDir(), ".lock"), cfg.LockFile())
}
