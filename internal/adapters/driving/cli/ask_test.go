package cli

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/finrag/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ask")

	assert.Error(t, err)
}

func TestAskCmd_JoinsArgsAndPassesFlags(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := runCommand("ask", "what", "was", "EBITDA?", "-s", "s-1", "-d", "doc-1", "-u", "alice")

	require.NoError(t, err)
	assert.Equal(t, domain.QueryRequest{
		Query:      "what was EBITDA?",
		SessionID:  "s-1",
		UserID:     "alice",
		DocumentID: "doc-1",
	}, ts.chat.lastReq)
}

func TestAskCmd_PrintsAnswerWithSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.result = &domain.QueryResult{
		Response: "Q3 revenue was $4.2M.",
		Sources: []domain.Source{
			{DocumentID: "doc-1", Filename: "q3-report.pdf", ChunkText: "Revenue:\n  $4.2M", RelevanceScore: 0.8765},
		},
		SessionID: "s-42",
	}

	out, err := runCommand("ask", "Q3 revenue?")

	require.NoError(t, err)
	assert.Contains(t, out, "Q3 revenue was $4.2M.")
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] q3-report.pdf (0.88)")
	assert.Contains(t, out, "Revenue: $4.2M")
	assert.Contains(t, out, "Session: s-42")
}

func TestAskCmd_NoSourcesSection(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("ask", "hello")

	require.NoError(t, err)
	assert.NotContains(t, out, "Sources:")
	assert.Contains(t, out, "Session: session-1")
}

func TestAskCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := runCommand("ask", "hello", "--json")

	require.NoError(t, err)
	var result domain.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "ok", result.Response)
	assert.Equal(t, "session-1", result.SessionID)
}

func TestAskCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.err = &domain.GenerationError{Attempts: 3, Err: errors.New("rate limited")}

	_, err := runCommand("ask", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
}

func TestAskCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	chatService = nil

	_, err := runCommand("ask", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat service not configured")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine("  a\n\tb   c \n"))
	assert.Equal(t, "", oneLine(""))
}
