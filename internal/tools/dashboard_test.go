package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sidebot/internal/dashboard"
	"sidebot/internal/dataset"
	"sidebot/internal/query"
)

const birdsCSV = `bird_name,count
American Robin,3
Blue Jay,1
`

func newBinder(t *testing.T) (*Binder, *dashboard.Store) {
	t.Helper()
	eng, err := dataset.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	require.NoError(t, eng.LoadCSV(strings.NewReader(birdsCSV), "birds"))

	store := dashboard.NewStore(eng, nil)
	return NewBinder(query.NewGate(eng, nil), store, nil), store
}

func TestUpdateDashboardCommitsValidQuery(t *testing.T) {
	binder, store := newBinder(t)
	reg := binder.Bind(nil)

	result, err := reg.Execute(context.Background(), UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM birds WHERE bird_name = 'American Robin'`,
		"title": "American Robins",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result)

	state := store.Read()
	assert.Equal(t, `SELECT * FROM birds WHERE bird_name = 'American Robin'`, state.Query)
	assert.Equal(t, "American Robins", state.Title)
}

func TestUpdateDashboardRejectsBadQueryAndKeepsState(t *testing.T) {
	binder, store := newBinder(t)
	reg := binder.Bind(nil)
	ctx := context.Background()

	_, err := reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM birds WHERE count > 2`,
		"title": "Busy sightings",
	})
	require.NoError(t, err)
	prior := store.Read()

	_, err = reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM nonexistent`,
		"title": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")

	assert.Equal(t, prior, store.Read(), "failed update must not touch the store")
}

func TestUpdateDashboardEmptyQueryResets(t *testing.T) {
	binder, store := newBinder(t)
	reg := binder.Bind(nil)
	ctx := context.Background()

	_, err := reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM birds WHERE count > 2`,
		"title": "Busy sightings",
	})
	require.NoError(t, err)

	_, err = reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": "",
		"title": "",
	})
	require.NoError(t, err)
	assert.Equal(t, dashboard.ViewState{}, store.Read())
}

func TestUpdateDashboardRecordsEveryCall(t *testing.T) {
	binder, _ := newBinder(t)
	rec := NewRecorder()
	reg := binder.Bind(rec)
	ctx := context.Background()

	reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM nonexistent`, "title": "bad",
	})
	reg.Execute(ctx, UpdateDashboardName, map[string]any{
		"query": `SELECT * FROM birds`, "title": "good",
	})

	calls := rec.Calls()
	require.Len(t, calls, 2, "rejected calls are recorded too")
	assert.Equal(t, CallRecord{Query: `SELECT * FROM nonexistent`, Title: "bad"}, calls[0])

	last, ok := rec.LastQuery()
	require.True(t, ok)
	assert.Equal(t, `SELECT * FROM birds`, last)
}

func TestQueryDBReturnsRecords(t *testing.T) {
	binder, _ := newBinder(t)
	reg := binder.Bind(nil)

	result, err := reg.Execute(context.Background(), QueryDBName, map[string]any{
		"query": `SELECT bird_name, count FROM birds ORDER BY count DESC`,
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`[{"bird_name":"American Robin","count":3},{"bird_name":"Blue Jay","count":1}]`,
		result)
}

func TestQueryDBRejectsEmptyQuery(t *testing.T) {
	binder, _ := newBinder(t)
	reg := binder.Bind(nil)

	_, err := reg.Execute(context.Background(), QueryDBName, map[string]any{"query": ""})
	assert.Error(t, err)
}
