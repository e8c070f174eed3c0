package wavelet

// 9/7 irreversible (Cohen-Daubechies-Feauveau) lifting coefficients,
// Annex F Table F.4.
const (
	alpha97 = -1.586134342
	beta97  = -0.052980118
	gamma97 = 0.882911075
	delta97 = 0.443506852

	k97    = 1.230174105
	invK97 = 1.0 / k97
)

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// Forward97 runs the forward 9/7 lifting transform on a 1D signal,
// deinterleaving it into [low-pass | high-pass] in place.
func Forward97(data []float64, even bool) {
	width := len(data)
	if width <= 1 {
		return
	}

	var sn, dn, a, b int32
	if even {
		sn = int32((width + 1) >> 1)
		dn = int32(width) - sn
		a, b = 0, 1
	} else {
		sn = int32(width >> 1)
		dn = int32(width) - sn
		a, b = 1, 0
	}

	encodeLiftStep(data, a, b+1, dn, min32(dn, sn-b), alpha97)
	encodeLiftStep(data, b, a+1, sn, min32(sn, dn-a), beta97)
	encodeLiftStep(data, a, b+1, dn, min32(dn, sn-b), gamma97)
	encodeLiftStep(data, b, a+1, sn, min32(sn, dn-a), delta97)

	if a == 0 {
		scaleInterleaved(data, sn, dn, invK97, k97)
	} else {
		scaleInterleaved(data, dn, sn, k97, invK97)
	}
	deinterleave97(data, dn, sn, even)
}

func encodeLiftStep(data []float64, flStart, fwStart, end, m int32, c float64) {
	imax := min32(end, m)
	if imax > 0 {
		fw := fwStart
		fl := flStart
		data[fw-1] += (data[fl] + data[fw]) * c
		fw += 2
		for i := int32(1); i < imax; i++ {
			data[fw-1] += (data[fw-2] + data[fw]) * c
			fw += 2
		}
	}
	if m < end {
		fw := fwStart + 2*m
		data[fw-1] += 2 * data[fw-2] * c
	}
}

func scaleInterleaved(data []float64, itersC1, itersC2 int32, c1, c2 float64) {
	common := min32(itersC1, itersC2)
	var i, fw int32
	for i = 0; i < common; i++ {
		data[fw] *= c1
		data[fw+1] *= c2
		fw += 2
	}
	if i < itersC1 {
		data[fw] *= c1
	} else if i < itersC2 {
		data[fw+1] *= c2
	}
}

func deinterleave97(data []float64, dn, sn int32, even bool) {
	width := int(dn + sn)
	tmp := make([]float64, width)
	if even {
		for i := int32(0); i < sn; i++ {
			tmp[i] = data[2*i]
		}
		for i := int32(0); i < dn; i++ {
			tmp[sn+i] = data[2*i+1]
		}
	} else {
		for i := int32(0); i < sn; i++ {
			tmp[i] = data[2*i+1]
		}
		for i := int32(0); i < dn; i++ {
			tmp[sn+i] = data[2*i]
		}
	}
	copy(data, tmp)
}

func interleave97(data []float64, dn, sn int32, even bool) {
	width := int(dn + sn)
	tmp := make([]float64, width)
	if even {
		for i := int32(0); i < sn; i++ {
			tmp[2*i] = data[i]
		}
		for i := int32(0); i < dn; i++ {
			tmp[2*i+1] = data[sn+i]
		}
	} else {
		for i := int32(0); i < sn; i++ {
			tmp[2*i+1] = data[i]
		}
		for i := int32(0); i < dn; i++ {
			tmp[2*i] = data[sn+i]
		}
	}
	copy(data, tmp)
}

// Inverse97 is the exact inverse of Forward97.
func Inverse97(data []float64, even bool) {
	width := len(data)
	if width <= 1 {
		return
	}
	var sn, dn, a, b int32
	if even {
		sn = int32((width + 1) >> 1)
		dn = int32(width) - sn
		a, b = 0, 1
	} else {
		sn = int32(width >> 1)
		dn = int32(width) - sn
		a, b = 1, 0
	}

	interleave97(data, dn, sn, even)
	if a == 0 {
		unscaleInterleaved(data, sn, dn, invK97, k97)
	} else {
		unscaleInterleaved(data, dn, sn, k97, invK97)
	}

	decodeLiftStep(data, b, a+1, sn, min32(sn, dn-a), delta97)
	decodeLiftStep(data, a, b+1, dn, min32(dn, sn-b), gamma97)
	decodeLiftStep(data, b, a+1, sn, min32(sn, dn-a), beta97)
	decodeLiftStep(data, a, b+1, dn, min32(dn, sn-b), alpha97)
}

func decodeLiftStep(data []float64, flStart, fwStart, end, m int32, c float64) {
	encodeLiftStep(data, flStart, fwStart, end, m, -c)
}

func unscaleInterleaved(data []float64, itersC1, itersC2 int32, c1, c2 float64) {
	common := min32(itersC1, itersC2)
	var i, fw int32
	for i = 0; i < common; i++ {
		data[fw] /= c1
		data[fw+1] /= c2
		fw += 2
	}
	if i < itersC1 {
		data[fw] /= c1
	} else if i < itersC2 {
		data[fw+1] /= c2
	}
}

// Forward97_2D runs the 2D separable transform (columns then rows), one
// level, matching Forward53_2D's processing order.
func Forward97_2D(data []float64, width, height, stride int, evenRow, evenCol bool) {
	if width <= 1 && height <= 1 {
		return
	}
	if height > 1 {
		col := make([]float64, height)
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				col[y] = data[y*stride+x]
			}
			Forward97(col, evenCol)
			for y := 0; y < height; y++ {
				data[y*stride+x] = col[y]
			}
		}
	}
	if width > 1 {
		row := make([]float64, width)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				row[x] = data[y*stride+x]
			}
			Forward97(row, evenRow)
			for x := 0; x < width; x++ {
				data[y*stride+x] = row[x]
			}
		}
	}
}

// Inverse97_2D is the exact inverse of Forward97_2D.
func Inverse97_2D(data []float64, width, height, stride int, evenRow, evenCol bool) {
	if width <= 1 && height <= 1 {
		return
	}
	if width > 1 {
		row := make([]float64, width)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				row[x] = data[y*stride+x]
			}
			Inverse97(row, evenRow)
			for x := 0; x < width; x++ {
				data[y*stride+x] = row[x]
			}
		}
	}
	if height > 1 {
		col := make([]float64, height)
		for x := 0; x < width; x++ {
			for y := 0; y < height; y++ {
				col[y] = data[y*stride+x]
			}
			Inverse97(col, evenCol)
			for y := 0; y < height; y++ {
				data[y*stride+x] = col[y]
			}
		}
	}
}

// ForwardMultilevel97 is the 9/7 counterpart of ForwardMultilevel53.
func ForwardMultilevel97(data []float64, width, height, levels, x0, y0 int) {
	stride := width
	curWidth, curHeight, curX0, curY0 := width, height, x0, y0
	for level := 0; level < levels; level++ {
		if curWidth <= 1 && curHeight <= 1 {
			break
		}
		Forward97_2D(data, curWidth, curHeight, stride, isEven(curX0), isEven(curY0))
		curWidth, curHeight, curX0, curY0 = nextLowpassWindow(curWidth, curHeight, curX0, curY0)
	}
}

// InverseMultilevel97 is the 9/7 counterpart of InverseMultilevel53.
func InverseMultilevel97(data []float64, width, height, levels, x0, y0 int) {
	stride := width
	widths := make([]int, levels+1)
	heights := make([]int, levels+1)
	xs := make([]int, levels+1)
	ys := make([]int, levels+1)
	widths[0], heights[0], xs[0], ys[0] = width, height, x0, y0
	for i := 1; i <= levels; i++ {
		widths[i], heights[i], xs[i], ys[i] = nextLowpassWindow(widths[i-1], heights[i-1], xs[i-1], ys[i-1])
	}
	for level := levels - 1; level >= 0; level-- {
		Inverse97_2D(data, widths[level], heights[level], stride, isEven(xs[level]), isEven(ys[level]))
	}
}

// ToFloat64 widens int32 samples for 9/7 processing.
func ToFloat64(data []int32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

// RoundToInt32 rounds 9/7-transformed samples back to int32 for pixel
// reconstruction.
func RoundToInt32(data []float64) []int32 {
	out := make([]int32, len(data))
	for i, v := range data {
		if v >= 0 {
			out[i] = int32(v + 0.5)
		} else {
			out[i] = int32(v - 0.5)
		}
	}
	return out
}
