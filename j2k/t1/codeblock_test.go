package t1

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeblockRoundTrip(t *testing.T) {
	cases := []struct {
		name        string
		width       int
		height      int
		orientation int
		coeffs      []int32
	}{
		{"small mixed signs", 4, 4, OrientLL, []int32{
			0, 1, -1, 2,
			-3, 0, 5, -5,
			7, -7, 0, 0,
			1, 1, -1, -1,
		}},
		{"all zero", 4, 4, OrientHH, make([]int32, 16)},
		{"single coefficient", 1, 1, OrientHL, []int32{-42}},
		{"larger ramp", 8, 6, OrientLH, func() []int32 {
			out := make([]int32, 48)
			for i := range out {
				out[i] = int32(i%17) - 8
			}
			return out
		}()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := NewEncoder(tc.width, tc.height, tc.orientation)
			data, numPasses, maxBitplane, err := enc.Encode(tc.coeffs)
			require.NoError(t, err)

			dec := NewDecoder(tc.width, tc.height, tc.orientation)
			if maxBitplane < 0 {
				require.Equal(t, 0, numPasses)
				return
			}
			got, err := dec.Decode(data, maxBitplane, numPasses)
			require.NoError(t, err)
			require.Equal(t, tc.coeffs, got)
		})
	}
}
