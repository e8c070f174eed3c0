package t2

// Packet identifies one packet's coordinates within a tile: a layer,
// resolution level, component, and precinct index within that
// resolution/component.
type Packet struct {
	Layer, Resolution, Component, Precinct int
}

// Progression mirrors codestream.ProgressionOrder without importing that
// package, keeping t2 free of a dependency on codestream.
type Progression int

const (
	LRCP Progression = iota
	RLCP
	RPCL
	PCRL
	CPRL
)

// Schedule enumerates every packet in a tile in the order prescribed by
// order (ISO/IEC 15444-1 Annex A.6.1), given numLayers, numComponents, a
// per-component resolution count, and a per-(component,resolution)
// precinct count. A packet for (component, resolution) only appears when
// resolution < numResolutions(component), since components may have
// different decomposition depths under per-component COC overrides.
func Schedule(order Progression, numLayers, numComponents int, numResolutions func(component int) int, numPrecincts func(component, resolution int) int) []Packet {
	maxRes := 0
	for c := 0; c < numComponents; c++ {
		if r := numResolutions(c); r > maxRes {
			maxRes = r
		}
	}
	maxPrec := 0
	for c := 0; c < numComponents; c++ {
		for r := 0; r < numResolutions(c); r++ {
			if p := numPrecincts(c, r); p > maxPrec {
				maxPrec = p
			}
		}
	}

	var out []Packet
	emit := func(layer, res, comp, prec int) {
		if res >= numResolutions(comp) {
			return
		}
		if prec >= numPrecincts(comp, res) {
			return
		}
		out = append(out, Packet{Layer: layer, Resolution: res, Component: comp, Precinct: prec})
	}

	switch order {
	case LRCP:
		for l := 0; l < numLayers; l++ {
			for r := 0; r < maxRes; r++ {
				for c := 0; c < numComponents; c++ {
					for p := 0; p < maxPrec; p++ {
						emit(l, r, c, p)
					}
				}
			}
		}
	case RLCP:
		for r := 0; r < maxRes; r++ {
			for l := 0; l < numLayers; l++ {
				for c := 0; c < numComponents; c++ {
					for p := 0; p < maxPrec; p++ {
						emit(l, r, c, p)
					}
				}
			}
		}
	case RPCL:
		for r := 0; r < maxRes; r++ {
			for p := 0; p < maxPrec; p++ {
				for c := 0; c < numComponents; c++ {
					for l := 0; l < numLayers; l++ {
						emit(l, r, c, p)
					}
				}
			}
		}
	case PCRL:
		for p := 0; p < maxPrec; p++ {
			for c := 0; c < numComponents; c++ {
				for r := 0; r < maxRes; r++ {
					for l := 0; l < numLayers; l++ {
						emit(l, r, c, p)
					}
				}
			}
		}
	case CPRL:
		for c := 0; c < numComponents; c++ {
			for p := 0; p < maxPrec; p++ {
				for r := 0; r < maxRes; r++ {
					for l := 0; l < numLayers; l++ {
						emit(l, r, c, p)
					}
				}
			}
		}
	}
	return out
}
