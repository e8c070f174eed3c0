package t2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func resolutionsOf(n int) func(int) int { return func(int) int { return n } }

func TestScheduleLRCPOrdering(t *testing.T) {
	numRes := resolutionsOf(2)
	numPrec := func(component, resolution int) int {
		if resolution == 0 {
			return 1
		}
		return 3
	}
	packets := Schedule(LRCP, 2, 2, numRes, numPrec)

	// LRCP: layer is outermost, then resolution, then component, then
	// precinct; each count skipped when it would exceed the resolution's
	// own precinct count.
	expectedCount := 2 * (1 + 3) * 2 // layers * (res0 precincts + res1 precincts) * components
	require.Len(t, packets, expectedCount)
	require.Equal(t, Packet{Layer: 0, Resolution: 0, Component: 0, Precinct: 0}, packets[0])

	// Layer must be non-decreasing and dominate resolution/component/precinct.
	for i := 1; i < len(packets); i++ {
		require.GreaterOrEqual(t, packets[i].Layer, packets[i-1].Layer)
	}
	last := packets[len(packets)-1]
	require.Equal(t, 1, last.Layer)
}

func TestScheduleRespectsPerComponentResolutionCount(t *testing.T) {
	numRes := func(component int) int {
		if component == 0 {
			return 1
		}
		return 2
	}
	numPrec := func(component, resolution int) int { return 1 }
	packets := Schedule(LRCP, 1, 2, numRes, numPrec)

	for _, p := range packets {
		if p.Component == 0 {
			require.Equal(t, 0, p.Resolution, "component 0 only has resolution 0")
		}
	}
	require.Len(t, packets, 1+2) // component 0: res0; component 1: res0,res1
}

func TestScheduleCPRLGroupsByComponentThenPrecinct(t *testing.T) {
	numRes := resolutionsOf(2)
	numPrec := func(component, resolution int) int { return 2 }
	packets := Schedule(CPRL, 1, 2, numRes, numPrec)

	// CPRL: component outermost, then precinct, then resolution, then layer.
	require.Equal(t, Packet{Layer: 0, Resolution: 0, Component: 0, Precinct: 0}, packets[0])
	lastComponent0 := -1
	for i, p := range packets {
		if p.Component == 0 {
			lastComponent0 = i
		}
	}
	for i, p := range packets {
		if i > lastComponent0 {
			require.Equal(t, 1, p.Component, "once component switches to 1 it never returns to 0")
		}
	}
}
