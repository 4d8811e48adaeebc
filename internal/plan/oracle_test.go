package plan

import (
	"testing"

	"github.com/stretchr/testify/require"

	"loadplan/internal/model"
)

func TestMatrixOracleReverseFallback(t *testing.T) {
	m := NewMatrixOracle([]model.DistanceEdge{
		{From: "A", To: "B", Miles: 12, Minutes: 15},
	})
	e, ok := m.Lookup("A", "B")
	require.True(t, ok)
	require.Equal(t, 12.0, e.Miles)

	e, ok = m.Lookup("B", "A")
	require.True(t, ok)
	require.Equal(t, 12.0, e.Miles)

	_, ok = m.Lookup("A", "C")
	require.False(t, ok)
}

func TestLegsFailClosed(t *testing.T) {
	m := &MatrixOracle{}
	m.Add("DEPOT", "A", 10, 12)
	m.Add("A", "B", 5, 6)

	// B->DEPOT is unknown, so the whole chain resolves to nothing.
	_, ok := legs(m, "DEPOT", []string{"A", "B"})
	require.False(t, ok)

	m.Add("B", "DEPOT", 8, 10)
	lg, ok := legs(m, "DEPOT", []string{"A", "B"})
	require.True(t, ok)
	require.Len(t, lg, 3)
	require.Equal(t, 23.0, totalMiles(lg))
	require.Equal(t, 10.0, maxLegMiles(lg))
}

func TestLegsEmptySequence(t *testing.T) {
	lg, ok := legs(&MatrixOracle{}, "DEPOT", nil)
	require.True(t, ok)
	require.Empty(t, lg)
}

func TestLegPenaltyQuadratic(t *testing.T) {
	lg := []Edge{{Miles: 70}, {Miles: 80}, {Miles: 100}}
	// Overages past 75: 0, 5, 25.
	require.InDelta(t, 5*5+25*25, legPenalty(lg, 75), 1e-9)
	require.Zero(t, legPenalty(lg, 100))
}
