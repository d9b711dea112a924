package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sidebot/internal/dashboard"
	"sidebot/internal/dataset"
	"sidebot/internal/provider"
	"sidebot/internal/query"
	"sidebot/internal/tools"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const birdsCSV = `bird_name,count
American Robin,3
Blue Jay,1
`

func newBinder(t *testing.T) (*tools.Binder, *dashboard.Store) {
	t.Helper()
	eng, err := dataset.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, eng.LoadCSV(strings.NewReader(birdsCSV), "birds"))

	store := dashboard.NewStore(eng, nil)
	return tools.NewBinder(query.NewGate(eng, nil), store, nil), store
}

func TestStreamPlainTextTurn(t *testing.T) {
	binder, _ := newBinder(t)
	client := &scriptedClient{script: []scriptStep{
		{resp: &provider.TurnResponse{Text: "Hello there.", StopReason: "end_turn"}},
	}}
	sess := New(client, "system prompt", binder, nil)

	text, err := drain(sess.Stream(context.Background(), "hi"))
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)

	turns := sess.History()
	require.Len(t, turns, 2)
	assert.Equal(t, provider.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Text)
	assert.Equal(t, provider.RoleAssistant, turns[1].Role)

	req := client.request(0)
	assert.Equal(t, "system prompt", req.System)
	assert.Len(t, req.Tools, 2)
}

func TestStreamExecutesToolCalls(t *testing.T) {
	binder, store := newBinder(t)
	client := &scriptedClient{script: []scriptStep{
		{resp: &provider.TurnResponse{
			Text: "Updating the dashboard.",
			ToolCalls: []provider.ToolCall{{
				ID:   "call-1",
				Name: tools.UpdateDashboardName,
				Input: map[string]any{
					"query": `SELECT * FROM birds WHERE count > 2`,
					"title": "Busy sightings",
				},
			}},
		}},
		{resp: &provider.TurnResponse{Text: " Done.", StopReason: "end_turn"}},
	}}
	sess := New(client, "sys", binder, nil)

	text, err := drain(sess.Stream(context.Background(), "show busy birds"))
	require.NoError(t, err)
	assert.Equal(t, "Updating the dashboard. Done.", text)

	state := store.Read()
	assert.Equal(t, `SELECT * FROM birds WHERE count > 2`, state.Query)
	assert.Equal(t, "Busy sightings", state.Title)

	// user, assistant(tool call), tool result, final assistant
	turns := sess.History()
	require.Len(t, turns, 4)
	assert.Equal(t, provider.RoleTool, turns[2].Role)
	require.Len(t, turns[2].ToolResults, 1)
	assert.Equal(t, "call-1", turns[2].ToolResults[0].ToolCallID)
	assert.False(t, turns[2].ToolResults[0].IsError)

	// The second provider call must see the answered tool call.
	second := client.request(1)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, provider.RoleTool, second.Messages[2].Role)
}

func TestStreamToolErrorBecomesResult(t *testing.T) {
	binder, store := newBinder(t)
	client := &scriptedClient{script: []scriptStep{
		{resp: &provider.TurnResponse{
			ToolCalls: []provider.ToolCall{{
				ID:   "call-1",
				Name: tools.UpdateDashboardName,
				Input: map[string]any{
					"query": `SELECT nonexistent FROM birds`,
					"title": "Broken",
				},
			}},
		}},
		{resp: &provider.TurnResponse{Text: "That query failed.", StopReason: "end_turn"}},
	}}
	sess := New(client, "sys", binder, nil)

	_, err := drain(sess.Stream(context.Background(), "break it"))
	require.NoError(t, err)

	// The failing query never reaches the store.
	assert.Equal(t, "", store.Read().Query)

	turns := sess.History()
	require.Len(t, turns, 4)
	result := turns[2].ToolResults[0]
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content, "nonexistent")
}

func TestStreamProviderFailureLeavesSessionUsable(t *testing.T) {
	binder, _ := newBinder(t)
	boom := errors.New("upstream 503")
	client := &scriptedClient{script: []scriptStep{
		{err: boom},
		{resp: &provider.TurnResponse{Text: "Recovered.", StopReason: "end_turn"}},
	}}
	sess := New(client, "sys", binder, nil)

	_, err := drain(sess.Stream(context.Background(), "first"))
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.ErrorIs(t, err, boom)

	// Only the user's own turn was appended.
	turns := sess.History()
	require.Len(t, turns, 1)
	assert.Equal(t, provider.RoleUser, turns[0].Role)

	// The next input proceeds normally.
	text, err := drain(sess.Stream(context.Background(), "second"))
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", text)
	assert.Equal(t, 4, sess.TurnCount())
}

func TestForkCopiesHistory(t *testing.T) {
	binder, _ := newBinder(t)
	client := &scriptedClient{}
	sess := New(client, "sys", binder, nil)

	_, err := drain(sess.Stream(context.Background(), "hello"))
	require.NoError(t, err)
	require.Equal(t, 2, sess.TurnCount())

	fork := sess.Fork()
	assert.NotEqual(t, sess.ID(), fork.ID())
	assert.Equal(t, sess.SystemPrompt(), fork.SystemPrompt())
	assert.Equal(t, sess.History(), fork.History())

	// Growth on one side is invisible to the other.
	_, err = drain(fork.Stream(context.Background(), "fork only"))
	require.NoError(t, err)
	assert.Equal(t, 2, sess.TurnCount())
	assert.Equal(t, 4, fork.TurnCount())

	_, err = drain(sess.Stream(context.Background(), "original only"))
	require.NoError(t, err)
	assert.Equal(t, 4, sess.TurnCount())
	assert.Equal(t, 4, fork.TurnCount())
	assert.NotEqual(t, sess.History(), fork.History())
}

func TestForkSharesDashboardStore(t *testing.T) {
	binder, store := newBinder(t)
	client := &scriptedClient{script: []scriptStep{
		{resp: &provider.TurnResponse{
			ToolCalls: []provider.ToolCall{{
				ID:   "fork-call",
				Name: tools.UpdateDashboardName,
				Input: map[string]any{
					"query": `SELECT * FROM birds`,
					"title": "All birds",
				},
			}},
		}},
		{resp: &provider.TurnResponse{Text: "Updated.", StopReason: "end_turn"}},
	}}
	sess := New(client, "sys", binder, nil)
	fork := sess.Fork()

	_, err := drain(fork.Stream(context.Background(), "update from fork"))
	require.NoError(t, err)

	// The fork's update lands on the same store the original reads.
	assert.Equal(t, "All birds", store.Read().Title)

	// But recorders are per-session.
	assert.Len(t, fork.Recorder().Calls(), 1)
	assert.Empty(t, sess.Recorder().Calls())
}

func TestForkDeepCopiesToolCallInputs(t *testing.T) {
	binder, _ := newBinder(t)
	client := &scriptedClient{script: []scriptStep{
		{resp: &provider.TurnResponse{
			ToolCalls: []provider.ToolCall{{
				ID:    "call-1",
				Name:  tools.QueryDBName,
				Input: map[string]any{"query": `SELECT count FROM birds`},
			}},
		}},
		{resp: &provider.TurnResponse{Text: "ok", StopReason: "end_turn"}},
	}}
	sess := New(client, "sys", binder, nil)
	_, err := drain(sess.Stream(context.Background(), "query"))
	require.NoError(t, err)

	fork := sess.Fork()
	forkTurns := fork.History()
	forkTurns[1].ToolCalls[0].Input["query"] = "mutated"

	orig := sess.History()
	assert.Equal(t, `SELECT count FROM birds`, orig[1].ToolCalls[0].Input["query"])
}
