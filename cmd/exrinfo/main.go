// Command exrinfo prints an OpenEXR-style file's header attributes and part
// geometry.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/cocosip/go-hdrimage/exr"
	"github.com/cocosip/go-hdrimage/exr/stream"
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: exrinfo <file.exr>")
	}
	path := flag.Arg(0)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	mem := stream.NewMemory(data)
	reg := exr.NewRegistry()

	flags, err := exr.ReadMagicAndVersion(mem)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	if _, err := mem.Seek(0, 0); err != nil {
		log.Fatalf("%s: %v", path, err)
	}

	if flags.MultiPart {
		_, headers, err := exr.ReadMultiPartPrologue(mem, reg)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
		fmt.Printf("%s: multi-part, %d part(s)\n", path, len(headers))
		for i, h := range headers {
			fmt.Printf("--- part %d ---\n", i)
			printHeader(h)
		}
		return
	}

	f, err := exr.Open(mem, reg)
	if err != nil {
		log.Fatalf("%s: %v", path, err)
	}
	fmt.Printf("%s: single-part, %d chunk(s)\n", path, len(f.Offsets))
	printHeader(f.Header)
}

func printHeader(h *exr.Header) {
	if dw, ok := h.DataWindow(); ok {
		fmt.Printf("  dataWindow: %dx%d (%d,%d)-(%d,%d)\n", dw.Width(), dw.Height(), dw.MinX, dw.MinY, dw.MaxX, dw.MaxY)
	}
	if comp, ok := h.Compression(); ok {
		fmt.Printf("  compression: %s\n", comp)
	}
	if lo, ok := h.LineOrder(); ok {
		fmt.Printf("  lineOrder: %d\n", lo)
	}
	if td, ok := h.Tiles(); ok {
		fmt.Printf("  tiles: %dx%d mode=%d rounding=%d\n", td.XSize, td.YSize, td.Mode, td.Rounding)
	}
	if cl, ok := h.Channels(); ok {
		fmt.Printf("  channels:")
		for _, ch := range cl.Channels {
			fmt.Printf(" %s(%s)", ch.Name, ch.Type)
		}
		fmt.Println()
	}
	for _, name := range h.Names() {
		switch name {
		case "dataWindow", "displayWindow", "compression", "lineOrder", "tiles", "channels":
			continue
		}
		fmt.Printf("  %s: %s\n", name, h.Get(name).TypeName())
	}
}
