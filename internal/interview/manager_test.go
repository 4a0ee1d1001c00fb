package interview

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSerializesSessionTurns(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine, st := newTestEngine(t, nil, nil)
	mgr := NewManager(engine)

	start, err := mgr.Start(ctx, "owner", "")
	require.NoError(t, err)

	// Concurrent turns against one session: the per-session lock makes
	// each one load the plan version the previous one stored, so none of
	// them can lose an optimistic save.
	inputs := []RespondInput{
		{SessionID: start.SessionID, Message: "Jane Doe", FieldPath: "client.name", Validated: true},
		{SessionID: start.SessionID, Message: "1985", FieldPath: "client.birth_year", Validated: true},
		{SessionID: start.SessionID, Message: "Washington", FieldPath: "location.state", Validated: true},
		{SessionID: start.SessionID, Message: "Seattle", FieldPath: "location.city", Validated: true},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(inputs))
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = mgr.Respond(ctx, in)
		}()
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "turn %d", i)
	}

	plan, err := st.LoadPlan(ctx, start.PlanID)
	require.NoError(t, err)
	for _, path := range []string{"client.name", "client.birth_year", "location.state", "location.city"} {
		assert.True(t, plan.Field(path).Collected(), path)
	}

	sess, err := st.LoadSession(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Equal(t, len(inputs), sess.Turn)
}

func TestManagerIndependentSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine, _ := newTestEngine(t, nil, nil)
	mgr := NewManager(engine)

	a, err := mgr.Start(ctx, "owner-a", "")
	require.NoError(t, err)
	b, err := mgr.Start(ctx, "owner-b", "")
	require.NoError(t, err)
	require.NotEqual(t, a.SessionID, b.SessionID)

	resA, err := mgr.Respond(ctx, RespondInput{
		SessionID: a.SessionID, Message: "Jane Doe", FieldPath: "client.name", Validated: true,
	})
	require.NoError(t, err)
	resB, err := mgr.Respond(ctx, RespondInput{
		SessionID: b.SessionID, Message: "John Roe", FieldPath: "client.name", Validated: true,
	})
	require.NoError(t, err)

	assert.Contains(t, resA.AssistantMessage, "Jane Doe")
	assert.Contains(t, resB.AssistantMessage, "John Roe")
}
