package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvenanceFieldCollected(t *testing.T) {
	t.Parallel()

	t.Run("default is uncollected", func(t *testing.T) {
		t.Parallel()
		f := DefaultField(float64(0))
		assert.False(t, f.Collected())
	})

	t.Run("set marks collected", func(t *testing.T) {
		t.Parallel()
		f := DefaultField(float64(0))
		f.Set(float64(150000), 1.0, SourceDeterministic)
		assert.True(t, f.Collected())
		assert.False(t, f.Timestamp.IsZero())
	})

	t.Run("falsy value with non-default source counts as collected", func(t *testing.T) {
		t.Parallel()
		f := DefaultField(nil)
		f.Set(false, 0.95, SourceLLM)
		assert.True(t, f.Collected())
	})
}

func TestNewPlanSchemaDefaults(t *testing.T) {
	t.Parallel()

	s := NewPlanSchema("plan-1", "owner-1")

	assert.Equal(t, "plan-1", s.PlanID)
	assert.Equal(t, StatusIntakeInProgress, s.Status)
	assert.Equal(t, 1, s.Version)

	for _, path := range LeafPaths() {
		f := s.Field(path)
		require.NotNil(t, f, path)
		assert.False(t, f.Collected(), path)
	}

	window, _ := s.Field("client.retirement_window").Value.(NumericRange)
	assert.Equal(t, NumericRange{Min: 65, Max: 67}, window)
}

func TestFieldResolution(t *testing.T) {
	t.Parallel()

	s := NewPlanSchema("p", "o")

	t.Run("writes through the pointer", func(t *testing.T) {
		t.Parallel()
		s.Field("income.current_gross_annual").Set(float64(150000), 1.0, SourceDeterministic)
		n, ok := s.NumberAt("income.current_gross_annual")
		require.True(t, ok)
		assert.Equal(t, float64(150000), n)
	})

	t.Run("unknown path is nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, s.Field("no.such.path"))
	})
}

func TestNumberAt(t *testing.T) {
	t.Parallel()

	s := NewPlanSchema("p", "o")

	t.Run("uncollected is not ok", func(t *testing.T) {
		t.Parallel()
		_, ok := s.NumberAt("accounts.retirement_balance")
		assert.False(t, ok)
	})

	t.Run("handles int values", func(t *testing.T) {
		t.Parallel()
		s := NewPlanSchema("p2", "o")
		s.Field("client.birth_year").Set(1985, 1.0, SourceDeterministic)
		n, ok := s.NumberAt("client.birth_year")
		require.True(t, ok)
		assert.Equal(t, float64(1985), n)
	})
}

func TestRangeAtSurvivesJSONRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewPlanSchema("p", "o")
	s.Field("client.retirement_window").Set(NumericRange{Min: 62, Max: 67}, 1.0, SourceDeterministic)

	doc, err := json.Marshal(s)
	require.NoError(t, err)
	var restored PlanSchema
	require.NoError(t, json.Unmarshal(doc, &restored))

	r, ok := restored.RangeAt("client.retirement_window")
	require.True(t, ok)
	assert.Equal(t, NumericRange{Min: 62, Max: 67}, r)
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	s := NewPlanSchema("p", "o")
	s.Field("client.name").Set("Jane Doe", 1.0, SourceDeterministic)

	dup := s.Clone()
	dup.Field("client.name").Set("Other Person", 1.0, SourceCorrection)

	assert.Equal(t, "Jane Doe", s.Field("client.name").Value)
	assert.Equal(t, "Other Person", dup.Field("client.name").Value)
}
