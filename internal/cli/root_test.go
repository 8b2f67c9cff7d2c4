package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xmatch/internal/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "xmatch", cmd.Use)
	assert.Contains(t, cmd.Long, "Gaia DR3")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"build", "stats", "lookup", "cone", "verify"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestBuildCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	buildCmd, _, err := cmd.Find([]string{"build"})
	require.NoError(t, err)

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"output", "o", "gaia_sao_xmatch.db"},
		{"max-magnitude", "m", "9"},
		{"test", "", "false"},
		{"radius", "", "5"},
		{"nearest", "", "false"},
		{"workers", "", "1"},
		{"batch-size", "", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildCmd.Flags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestQueryCommandsRequireDB(t *testing.T) {
	for _, name := range []string{"stats", "lookup", "cone", "verify"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			dbFlag := sub.Flags().Lookup("db")
			require.NotNil(t, dbFlag)
			assert.Equal(t, "", dbFlag.DefValue)
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "invalid", "stats", "--db", "x.db"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadConfig_Defaults(t *testing.T) {
	opts := &RootOptions{}
	cfg, err := opts.loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default().Output, cfg.Output)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	opts := &RootOptions{Config: "does-not-exist.yaml"}
	_, err := opts.loadConfig()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}

	logger := newLogger(buf, false, config.LoggingConfig{Level: "warn", Format: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = newLogger(buf, true, config.LoggingConfig{Level: "error"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	wrapped := WrapExitError(ExitFailure, "build failed", errors.New("boom"))
	assert.Equal(t, "build failed: boom", wrapped.Error())
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
}
