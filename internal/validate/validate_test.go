package validate

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northharbor/sage/internal/model"
	"github.com/northharbor/sage/internal/registry"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "185,000", Normalize(" $185,000 "))
	assert.Equal(t, "95", Normalize("95%"))
	assert.Equal(t, "Jane Doe", Normalize("  Jane   Doe  "))
	assert.Equal(t, "", Normalize("   "))
}

func TestValueName(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("client.name")

	t.Run("accepts two capitalized words", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "Jane Doe")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", v)
	})

	t.Run("accepts hyphens and apostrophes", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "Mary O'Brien-Smith")
		require.NoError(t, err)
		assert.Equal(t, "Mary O'Brien-Smith", v)
	})

	t.Run("rejects single word", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "Jane")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "full name")
	})

	t.Run("rejects five words", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "One Two Three Four Five")
		assert.Error(t, err)
	})

	t.Run("rejects lowercase token", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "jane Doe")
		assert.Error(t, err)
	})
}

func TestValueYear(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("client.birth_year")

	t.Run("accepts valid year", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "1985")
		require.NoError(t, err)
		assert.Equal(t, 1985, v)
	})

	t.Run("rejects future year", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "2999")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "future")
	})

	t.Run("rejects pre-1900", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "1850")
		assert.Error(t, err)
	})

	t.Run("rejects two digits", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "85")
		assert.Error(t, err)
	})

	t.Run("accepts current year", func(t *testing.T) {
		t.Parallel()
		year := time.Now().UTC().Year()
		v, err := Value(spec, strconv.Itoa(year))
		require.NoError(t, err)
		assert.Equal(t, year, v)
	})
}

func TestValueMoney(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("income.current_gross_annual")

	t.Run("accepts plain amount", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "185000")
		require.NoError(t, err)
		assert.Equal(t, float64(185000), v)
	})

	t.Run("strips currency decoration", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "$185,000")
		require.NoError(t, err)
		assert.Equal(t, float64(185000), v)
	})

	t.Run("rejects negative", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "-500")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "negative")
	})

	t.Run("rejects words", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "a lot")
		assert.Error(t, err)
	})
}

func TestValuePercent(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("accounts.employer_match_percent")

	t.Run("accepts percent with sign", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "6%")
		require.NoError(t, err)
		assert.Equal(t, float64(6), v)
	})

	t.Run("clamps above 100", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "150")
		require.NoError(t, err)
		assert.Equal(t, float64(100), v)
	})
}

func TestValueSuccessRate(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("retirement_philosophy.success_probability_target")

	t.Run("accepts percent form", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "95%")
		require.NoError(t, err)
		assert.Equal(t, float64(95), v)
	})

	t.Run("converts ratio form", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "0.9")
		require.NoError(t, err)
		assert.Equal(t, float64(90), v)
	})

	t.Run("clamps to floor", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "40")
		require.NoError(t, err)
		assert.Equal(t, float64(60), v)
	})

	t.Run("clamps to ceiling", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "100")
		require.NoError(t, err)
		assert.Equal(t, float64(99), v)
	})
}

func TestValueAgeRange(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("client.retirement_window")

	t.Run("parses range with to", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "62 to 67")
		require.NoError(t, err)
		assert.Equal(t, model.NumericRange{Min: 62, Max: 67}, v)
	})

	t.Run("parses range with dash", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "65-70")
		require.NoError(t, err)
		assert.Equal(t, model.NumericRange{Min: 65, Max: 70}, v)
	})

	t.Run("single age collapses to degenerate range", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "65")
		require.NoError(t, err)
		assert.Equal(t, model.NumericRange{Min: 65, Max: 65}, v)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "67 to 62")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "backwards")
	})

	t.Run("rejects unrealistic ages", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "30")
		assert.Error(t, err)
		_, err = Value(spec, "62 to 85")
		assert.Error(t, err)
	})
}

func TestValueInteger(t *testing.T) {
	t.Parallel()

	t.Run("claiming age in range", func(t *testing.T) {
		t.Parallel()
		spec := registry.Describe("social_security.claiming_preference")
		v, err := Value(spec, "67")
		require.NoError(t, err)
		assert.Equal(t, 67, v)
	})

	t.Run("claiming age out of range", func(t *testing.T) {
		t.Parallel()
		spec := registry.Describe("social_security.claiming_preference")
		_, err := Value(spec, "75")
		assert.Error(t, err)
	})

	t.Run("horizon age bounds", func(t *testing.T) {
		t.Parallel()
		spec := registry.Describe("monte_carlo.horizon_age")
		v, err := Value(spec, "95")
		require.NoError(t, err)
		assert.Equal(t, 95, v)
		_, err = Value(spec, "130")
		assert.Error(t, err)
	})

	t.Run("rejects non-canonical integer", func(t *testing.T) {
		t.Parallel()
		spec := registry.Describe("monte_carlo.horizon_age")
		_, err := Value(spec, "095")
		assert.Error(t, err)
	})
}

func TestValueBoolean(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("accounts.has_employer_plan")

	cases := map[string]bool{
		"yes": true, "Yes": true, "true": true,
		"no": false, "NO": false, "false": false,
	}
	for in, want := range cases {
		v, err := Value(spec, in)
		require.NoError(t, err, in)
		assert.Equal(t, want, v, in)
	}

	_, err := Value(spec, "maybe")
	assert.Error(t, err)
}

func TestValueText(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("location.state")

	t.Run("accepts word text", func(t *testing.T) {
		t.Parallel()
		v, err := Value(spec, "Washington")
		require.NoError(t, err)
		assert.Equal(t, "Washington", v)
	})

	t.Run("rejects digits", func(t *testing.T) {
		t.Parallel()
		_, err := Value(spec, "Apt 4B")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "numbers")
	})
}

func TestValueFreeText(t *testing.T) {
	t.Parallel()
	spec := registry.Describe("additional_considerations")

	v, err := Value(spec, "  We plan to move to Arizona in 2027.  ")
	require.NoError(t, err)
	assert.Equal(t, "We plan to move to Arizona in 2027.", v)
}

func TestValueEmpty(t *testing.T) {
	t.Parallel()
	_, err := Value(registry.Describe("client.name"), "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestNumber(t *testing.T) {
	t.Parallel()

	n, ok := Number("$1,234.50")
	require.True(t, ok)
	assert.Equal(t, 1234.5, n)

	_, ok = Number("none")
	assert.False(t, ok)
}
