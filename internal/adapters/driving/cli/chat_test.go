package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCmd_Use(t *testing.T) {
	assert.Equal(t, "chat", chatCmd.Use)
	assert.Contains(t, chatCmd.Aliases, "tui")
}

func TestChatCmd_Flags(t *testing.T) {
	for _, tt := range []struct {
		name      string
		shorthand string
	}{
		{"session", "s"},
		{"user", "u"},
		{"document", "d"},
	} {
		flag := chatCmd.Flags().Lookup(tt.name)
		require.NotNil(t, flag, tt.name)
		assert.Equal(t, tt.shorthand, flag.Shorthand)
	}
}

func TestChatCmd_RejectsArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("chat", "extra")

	assert.Error(t, err)
}

func TestChatCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	chatService = nil

	_, err := runCommand("chat")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat service not configured")
}
