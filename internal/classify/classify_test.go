package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	t.Run("drops home and collapses repeats", func(t *testing.T) {
		cleaned, onlyNoise := Clean([]string{"Inicio", "Moda", "Moda", "Mujer"})
		require.Equal(t, []string{"Moda", "Mujer"}, cleaned)
		require.False(t, onlyNoise)
	})

	t.Run("only home is flagged as noise", func(t *testing.T) {
		cleaned, onlyNoise := Clean([]string{"Home"})
		require.Empty(t, cleaned)
		require.True(t, onlyNoise)
	})

	t.Run("empty input is not noise", func(t *testing.T) {
		cleaned, onlyNoise := Clean(nil)
		require.Empty(t, cleaned)
		require.False(t, onlyNoise)
	})

	t.Run("separator glyphs are dropped", func(t *testing.T) {
		cleaned, _ := Clean([]string{"Moda", ">", "Mujer", "›", "Bottoms"})
		require.Equal(t, []string{"Moda", "Mujer", "Bottoms"}, cleaned)
	})

	t.Run("whitespace-only entries are skipped entirely", func(t *testing.T) {
		cleaned, onlyNoise := Clean([]string{"  ", ""})
		require.Empty(t, cleaned)
		require.False(t, onlyNoise)
	})

	t.Run("idempotent", func(t *testing.T) {
		inputs := [][]string{
			{"Inicio", "Moda", "Moda", "Mujer"},
			{"Hogar", ">", "Cocina", "Cocina"},
			{"Home", "Otros Productos"},
		}
		for _, in := range inputs {
			once, _ := Clean(in)
			twice, onlyNoise := Clean(once)
			require.Equal(t, once, twice)
			require.False(t, onlyNoise)
		}
	})
}

func TestCataloged(t *testing.T) {
	t.Run("two useful levels pass", func(t *testing.T) {
		require.True(t, Cataloged([]string{"Moda", "Mujer"}))
	})

	t.Run("single level fails", func(t *testing.T) {
		require.False(t, Cataloged([]string{"Moda"}))
	})

	t.Run("misc label fails regardless of depth", func(t *testing.T) {
		require.False(t, Cataloged([]string{"Hogar", "Otros Productos"}))
		require.False(t, Cataloged([]string{"Miscelaneos", "Varios"}))
	})

	t.Run("empty fails", func(t *testing.T) {
		require.False(t, Cataloged(nil))
	})
}

func TestSplitPath(t *testing.T) {
	t.Run("slash separated", func(t *testing.T) {
		require.Equal(t, []string{"Moda", "Mujer", "Bottoms"}, SplitPath("Moda/Mujer/Bottoms"))
	})

	t.Run("chevron separated", func(t *testing.T) {
		require.Equal(t, []string{"Hogar", "Cocina"}, SplitPath("Hogar > Cocina"))
	})

	t.Run("mixed separators", func(t *testing.T) {
		require.Equal(t, []string{"A", "B", "C"}, SplitPath("A › B | C"))
	})

	t.Run("no separator keeps whole string", func(t *testing.T) {
		require.Equal(t, []string{"Electro"}, SplitPath("Electro"))
	})

	t.Run("blank yields nothing", func(t *testing.T) {
		require.Empty(t, SplitPath("   "))
	})
}

func TestObservation(t *testing.T) {
	cases := []struct {
		name      string
		raw       []string
		want      string
		cataloged bool
	}{
		{"cataloged has no observation", []string{"Moda", "Mujer"}, "", true},
		{"only home", []string{"Home"}, ObsOnlyHome, false},
		{"single useful level", []string{"Inicio", "Moda"}, ObsSingleLevel, false},
		{"misc bucket", []string{"Otros Productos", "Varios"}, ObsMissing, false},
		{"nothing extracted", nil, ObsNoTaxonomy, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cleaned, onlyNoise := Clean(tc.raw)
			require.Equal(t, tc.cataloged, Cataloged(cleaned))
			require.Equal(t, tc.want, Observation(cleaned, onlyNoise))
		})
	}
}

func TestObservationSingleMiscLevel(t *testing.T) {
	// One level that is also a misc bucket reports the single-level case.
	cleaned, onlyNoise := Clean([]string{"Otros Productos"})
	require.Equal(t, []string{"Otros Productos"}, cleaned)
	require.False(t, Cataloged(cleaned))
	require.Equal(t, ObsSingleLevel, Observation(cleaned, onlyNoise))
}
