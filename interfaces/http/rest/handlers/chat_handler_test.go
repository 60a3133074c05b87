package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/billing"
)

// parseSSE splits an event-stream body into its decoded data payloads.
func parseSSE(t *testing.T, body string) []map[string]any {
	t.Helper()
	var events []map[string]any
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		events = append(events, event)
	}
	return events
}

func TestStreamCompletion(t *testing.T) {
	env := newTestEnv()
	// Account must exist with credit before a completion is allowed.
	doRequest(t, env, http.MethodGet, "/api/user", "")

	env.client.deltas = []ports.CompletionDelta{
		{Content: "Hel"},
		{Content: "lo"},
		{Usage: &billing.UsageRecord{InputTokens: 1_000_000, OutputTokens: 1_000_000}},
	}

	rec := doRequest(t, env, http.MethodPost, "/api/llm", `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	events := parseSSE(t, rec.Body.String())
	require.Len(t, events, 3)

	assert.Equal(t, "content", events[0]["type"])
	assert.Equal(t, "Hel", events[0]["content"])
	assert.Equal(t, "lo", events[1]["content"])

	final := events[2]
	assert.Equal(t, "complete", final["type"])
	assert.Equal(t, "Hello", final["fullContent"])
	assert.InDelta(t, 4.25, final["credits"].(float64), 1e-9)
}

func TestStreamCompletionOutOfCredits(t *testing.T) {
	env := newTestEnv()
	doRequest(t, env, http.MethodGet, "/api/user", "")
	// Burn the whole grant.
	_, err := env.accounts.Decrement(context.Background(), testUser, 5.0)
	require.NoError(t, err)

	rec := doRequest(t, env, http.MethodPost, "/api/llm", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Out of credits"}`, rec.Body.String())
}

func TestStreamCompletionValidation(t *testing.T) {
	env := newTestEnv()
	doRequest(t, env, http.MethodGet, "/api/user", "")

	t.Run("empty message list", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPost, "/api/llm", `{"messages":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPost, "/api/llm", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown role", func(t *testing.T) {
		rec := doRequest(t, env, http.MethodPost, "/api/llm", `{"messages":[{"role":"wizard","content":"x"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGenerateTitleEndpoint(t *testing.T) {
	env := newTestEnv()
	doRequest(t, env, http.MethodGet, "/api/user", "")
	branch := createBranch(t, env, `{"name":"untitled"}`)
	id := branch["id"].(string)
	doRequest(t, env, http.MethodPost, "/messages/"+id, `{"message":{"role":"user","content":"plan my trip"}}`)

	env.client.completion = &ports.Completion{
		Text:  `"Trip Planning"`,
		Usage: billing.UsageRecord{InputTokens: 1_000_000, OutputTokens: 1_000_000},
	}

	rec := doRequest(t, env, http.MethodPost, "/title/generate/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		UpdatedBranch    map[string]any `json:"updatedBranch"`
		RemainingCredits float64        `json:"remainingCredits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Trip Planning", resp.UpdatedBranch["name"])
	assert.InDelta(t, 4.25, resp.RemainingCredits, 1e-9)

	t.Run("empty branch rejected", func(t *testing.T) {
		empty := createBranch(t, env, `{"name":"empty"}`)
		rec := doRequest(t, env, http.MethodPost, "/title/generate/"+empty["id"].(string), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
