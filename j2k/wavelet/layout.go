// Package wavelet implements the two discrete wavelet transforms used by
// the codec (§4.9): the 5/3 reversible filter for lossless coding and the
// 9/7 irreversible (Cohen-Daubechies-Feauveau) filter for lossy coding.
package wavelet

func splitLengths(n int, even bool) int {
	if even {
		return (n + 1) / 2
	}
	return n / 2
}

func isEven(value int) bool { return value&1 == 0 }

func nextCoord(value int) int { return (value + 1) >> 1 }

func nextLowpassWindow(width, height, x0, y0 int) (nextWidth, nextHeight, nextX0, nextY0 int) {
	nextWidth = splitLengths(width, isEven(x0))
	nextHeight = splitLengths(height, isEven(y0))
	nextX0 = nextCoord(x0)
	nextY0 = nextCoord(y0)
	return
}

// NextLowpassWindow exposes nextLowpassWindow to callers outside this
// package that need to locate each decomposition level's subband regions
// (the top-level tile-component orchestration's subband extraction) without
// duplicating the split-parity arithmetic.
func NextLowpassWindow(width, height, x0, y0 int) (nextWidth, nextHeight, nextX0, nextY0 int) {
	return nextLowpassWindow(width, height, x0, y0)
}

// IsEven exposes isEven for the same reason as NextLowpassWindow.
func IsEven(value int) bool { return isEven(value) }

// SplitLengths exposes splitLengths for the same reason as NextLowpassWindow.
func SplitLengths(n int, even bool) int { return splitLengths(n, even) }

// LLDimensions returns the LL subband's dimensions after levels of
// decomposition starting at image origin (0,0).
func LLDimensions(width, height, levels int) (llWidth, llHeight int) {
	return LLDimensionsWithOrigin(width, height, levels, 0, 0)
}

// LLDimensionsWithOrigin is LLDimensions for an arbitrary tile-component
// origin (x0, y0), whose parity affects subband splitting (§4.2's
// data-window/tile alignment rules carry over to resolution sizing here).
func LLDimensionsWithOrigin(width, height, levels, x0, y0 int) (llWidth, llHeight int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if levels <= 0 {
		return width, height
	}
	curWidth, curHeight, curX0, curY0 := width, height, x0, y0
	for level := 0; level < levels; level++ {
		if curWidth <= 1 && curHeight <= 1 {
			break
		}
		curWidth, curHeight, curX0, curY0 = nextLowpassWindow(curWidth, curHeight, curX0, curY0)
	}
	return curWidth, curHeight
}
