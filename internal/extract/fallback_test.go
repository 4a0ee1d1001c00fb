package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northharbor/sage/internal/model"
)

func TestAffirmativeAndNegative(t *testing.T) {
	t.Parallel()

	assert.True(t, Affirmative("yes"))
	assert.True(t, Affirmative("  Yep "))
	assert.True(t, Affirmative("that is right"))
	assert.False(t, Affirmative("yes please set it to 90"))

	assert.True(t, Negative("no"))
	assert.True(t, Negative("Nothing else"))
	assert.True(t, Negative("skip"))
	assert.False(t, Negative("no, actually it's 95"))
}

func TestFallbackName(t *testing.T) {
	t.Parallel()

	t.Run("strips lead-in and capitalizes", func(t *testing.T) {
		t.Parallel()
		v, conf, ok := FallbackValue("client.name", "my name is jane doe")
		require.True(t, ok)
		assert.Equal(t, "Jane Doe", v)
		assert.Equal(t, 0.75, conf)
	})

	t.Run("rejects single token", func(t *testing.T) {
		t.Parallel()
		_, _, ok := FallbackValue("client.name", "Jane")
		assert.False(t, ok)
	})

	t.Run("rejects digits", func(t *testing.T) {
		t.Parallel()
		_, _, ok := FallbackValue("client.name", "Jane D03")
		assert.False(t, ok)
	})
}

func TestFallbackBirthYear(t *testing.T) {
	t.Parallel()

	v, conf, ok := FallbackValue("client.birth_year", "I was born in 1985, in Ohio")
	require.True(t, ok)
	assert.Equal(t, 1985, v)
	assert.Equal(t, 0.85, conf)

	_, _, ok = FallbackValue("client.birth_year", "born in 1850")
	assert.False(t, ok)
}

func TestFallbackHousing(t *testing.T) {
	t.Parallel()

	v, conf, ok := FallbackValue("housing.status", "renting")
	require.True(t, ok)
	assert.Equal(t, "rent", v)
	assert.Equal(t, 0.9, conf)

	v, _, ok = FallbackValue("housing.status", "Owner")
	require.True(t, ok)
	assert.Equal(t, "own", v)

	_, _, ok = FallbackValue("housing.status", "I live with family")
	assert.False(t, ok)
}

func TestFallbackBoolean(t *testing.T) {
	t.Parallel()

	v, conf, ok := FallbackValue("accounts.has_employer_plan", "yep")
	require.True(t, ok)
	assert.Equal(t, true, v)
	assert.Equal(t, 0.95, conf)

	v, _, ok = FallbackValue("accounts.has_employer_plan", "nope")
	require.True(t, ok)
	assert.Equal(t, false, v)
}

func TestFallbackAgeRange(t *testing.T) {
	t.Parallel()

	v, _, ok := FallbackValue("client.retirement_window", "somewhere between 62 and 67")
	require.True(t, ok)
	assert.Equal(t, model.NumericRange{Min: 62, Max: 67}, v)

	v, _, ok = FallbackValue("client.retirement_window", "probably 65")
	require.True(t, ok)
	assert.Equal(t, model.NumericRange{Min: 65, Max: 65}, v)

	_, _, ok = FallbackValue("client.retirement_window", "between 30 and 90")
	assert.False(t, ok)
}

func TestFallbackMoney(t *testing.T) {
	t.Parallel()

	v, conf, ok := FallbackValue("income.current_gross_annual", "$150,000")
	require.True(t, ok)
	assert.Equal(t, float64(150000), v)
	assert.Equal(t, 0.85, conf)
}

func TestFallbackInteger(t *testing.T) {
	t.Parallel()

	v, _, ok := FallbackValue("monte_carlo.horizon_age", "let's say 95")
	require.True(t, ok)
	assert.Equal(t, 95, v)

	_, _, ok = FallbackValue("monte_carlo.horizon_age", "forever")
	assert.False(t, ok)
}

func TestFallbackUnknownPath(t *testing.T) {
	t.Parallel()

	_, _, ok := FallbackValue("no.such.field", "anything")
	assert.False(t, ok)
}
