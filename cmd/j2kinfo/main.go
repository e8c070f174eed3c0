// Command j2kinfo prints a JPEG 2000 codestream's main header fields:
// image and tile geometry, coding style, and quantization parameters.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cocosip/go-hdrimage/j2k/codestream"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: j2kinfo <file.j2k>")
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	r := codestream.NewReader(bytes.NewReader(data))
	if err := r.ReadSOC(); err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	header, err := r.ReadMainHeader()
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	siz := header.SIZ
	fmt.Printf("%s: %dx%d, %d component(s)\n", path, siz.Width, siz.Height, len(siz.Components))
	fmt.Printf("  tile: %dx%d at (%d,%d)\n", siz.TileWidth, siz.TileHeight, siz.TileXOffset, siz.TileYOffset)
	for i, c := range siz.Components {
		kind := "unsigned"
		if c.Signed {
			kind = "signed"
		}
		fmt.Printf("  component %d: depth=%d %s sampling=%dx%d\n", i, c.Depth, kind, c.XSampling, c.YSampling)
	}

	cod := header.COD
	kernel := "9/7 irreversible"
	if cod.Style.Reversible {
		kernel = "5/3 reversible"
	}
	cbWidth, cbHeight := cod.Style.CodeBlockSize()
	fmt.Printf("  progression: %s, layers=%d, levels=%d, kernel=%s\n", cod.Progression, cod.Layers, cod.Style.DecompositionLevels, kernel)
	fmt.Printf("  codeblock: %dx%d, SOP=%v EPH=%v\n", cbWidth, cbHeight, cod.UseSOP, cod.UseEPH)

	qcd := header.QCD
	fmt.Printf("  quantization: style=%d guardBits=%d subbands=%d\n", qcd.Style.Style, qcd.Style.GuardBits, len(qcd.Style.StepSizes))

	for c, coc := range header.COC {
		w, h := coc.Style.CodeBlockSize()
		fmt.Printf("  COC component %d: levels=%d codeblock=%dx%d\n", c, coc.Style.DecompositionLevels, w, h)
	}
	for c, qcc := range header.QCC {
		fmt.Printf("  QCC component %d: style=%d guardBits=%d\n", c, qcc.Style.Style, qcc.Style.GuardBits)
	}
}
