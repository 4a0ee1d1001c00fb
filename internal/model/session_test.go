package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAppend(t *testing.T) {
	t.Parallel()

	s := &Session{ID: "s1"}
	idx := s.Append(Message{Role: RoleUser, Content: "hello"})

	assert.Equal(t, 0, idx)
	require.Len(t, s.History, 1)
	assert.False(t, s.History[0].Timestamp.IsZero())
}

func TestSupersede(t *testing.T) {
	t.Parallel()

	s := &Session{ID: "s1"}
	old := s.Append(Message{Role: RoleUser, Content: "1985", FieldPath: "client.birth_year"})
	s.Append(Message{Role: RoleAssistant, Content: "thanks"})
	repl := s.Append(Message{Role: RoleUser, Content: "1987", FieldPath: "client.birth_year"})

	s.Supersede(old, repl)

	t.Run("original is kept but marked", func(t *testing.T) {
		t.Parallel()
		require.Len(t, s.History, 3)
		assert.True(t, s.History[old].Superseded())
		require.NotNil(t, s.History[old].UpdatedByIndex)
		assert.Equal(t, repl, *s.History[old].UpdatedByIndex)
	})

	t.Run("replacement records its origin", func(t *testing.T) {
		t.Parallel()
		require.NotNil(t, s.History[repl].OriginalIndex)
		assert.Equal(t, old, *s.History[repl].OriginalIndex)
	})

	t.Run("live history elides the superseded message", func(t *testing.T) {
		t.Parallel()
		live := s.LiveHistory()
		require.Len(t, live, 2)
		for _, m := range live {
			assert.NotEqual(t, "1985", m.Content)
		}
	})

	t.Run("out of range indexes are ignored", func(t *testing.T) {
		t.Parallel()
		s := &Session{}
		s.Append(Message{Role: RoleUser, Content: "x"})
		s.Supersede(0, 5)
		assert.False(t, s.History[0].Superseded())
	})
}
