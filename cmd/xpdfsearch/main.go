// Command xpdfsearch extracts metadata, page attributes and text from PDF
// documents, standing in for the synchronous polling host the engine was
// built for: streaming fields are pulled unit by unit, exactly the way a
// content host would.
package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/tgotic/xPDFSearch/internal/config"
	"github.com/tgotic/xPDFSearch/internal/docreader"
	"github.com/tgotic/xPDFSearch/internal/engine"
	"github.com/tgotic/xPDFSearch/internal/fields"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the configured level
func setupLogging(cfg *config.Config) {
	log.SetOutput(os.Stderr)
	if cfg.IsDebug() {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	} else {
		log.SetFlags(0)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	fieldName := pflag.String("field", "", "Field to extract (see --list-fields)")
	listFields := pflag.Bool("list-fields", false, "List the supported fields and exit")
	compareWith := pflag.String("compare", "", "Second file: compare the field between both files")
	sizeUnit := pflag.String("unit", "pt", "Size unit for page dimensions (mm, cm, in, pt)")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg)

	if *listFields {
		for _, name := range fields.Names() {
			fmt.Println(name)
		}
		return
	}

	args := pflag.Args()
	if len(args) != 1 || *fieldName == "" {
		usage()
		os.Exit(2)
	}
	path := args[0]

	field, ok := fields.ParseField(*fieldName)
	if !ok {
		log.Fatalf("Unknown field: %s (use --list-fields)", *fieldName)
	}

	registry := engine.NewRegistry(cfg, docreader.FileOpener{MaxFileSize: cfg.MaxFileSize}, engine.Params{})
	defer registry.CloseAll()
	extractor := registry.Get("cli")

	if *compareWith != "" {
		runCompare(extractor, path, *compareWith, field)
		return
	}
	runExtract(extractor, cfg, path, field, *sizeUnit)
}

func runExtract(extractor *engine.Extractor, cfg *config.Config, path string, field fields.Field, sizeUnit string) {
	unit := 0
	if field == fields.PageWidth || field == fields.PageHeight {
		unit = parseSizeUnit(sizeUnit)
	}

	dst := make([]byte, engine.DefaultBufferSize)
	res, n := extractor.Extract(path, field, unit, dst, 0)
	if !field.Streaming() {
		printValue(res, dst[:n])
		exitFor(res)
		return
	}

	// pull streamed chunks the way the polling host does
	for unit = 1; res == fields.ResultFullText || res == fields.ResultOutlineText; unit++ {
		os.Stdout.Write(dst[:n])
		res, n = extractor.Extract(path, field, unit, dst, 0)
	}
	if res != fields.ResultFieldEmpty {
		exitFor(res)
	}
}

func runCompare(extractor *engine.Extractor, pathA, pathB string, field fields.Field) {
	start := time.Now()
	outcome := extractor.Compare(func(bytesProcessed int) bool {
		log.Printf("compared %d bytes...", bytesProcessed)
		return false
	}, pathA, pathB, field)
	log.Printf("comparison finished in %s", time.Since(start).Round(time.Millisecond))
	fmt.Println(outcome)
	if outcome != fields.CompareEqual && outcome != fields.CompareEqualText {
		os.Exit(1)
	}
}

// printValue renders a typed payload for the terminal.
func printValue(res fields.Result, payload []byte) {
	switch res {
	case fields.ResultInt32:
		fmt.Println(int32(binary.LittleEndian.Uint32(payload)))
	case fields.ResultFloat:
		v := math.Float64frombits(binary.LittleEndian.Uint64(payload))
		if len(payload) > 8 {
			// formatted representation follows the number
			fmt.Println(string(payload[8:]))
		} else {
			fmt.Printf("%g\n", v)
		}
	case fields.ResultBool:
		fmt.Println(payload[0] != 0)
	case fields.ResultDateTime:
		t := time.Unix(0, int64(binary.LittleEndian.Uint64(payload)))
		fmt.Println(t.Format(time.RFC3339))
	case fields.ResultString:
		fmt.Println(string(payload))
	case fields.ResultFieldEmpty:
		// empty field: print nothing
	case fields.ResultFileError:
		log.Println("Error: file could not be opened")
	case fields.ResultTimeout:
		log.Println("Error: extraction timed out")
	default:
		log.Printf("Error: unexpected result %d", res)
	}
}

func exitFor(res fields.Result) {
	switch res {
	case fields.ResultFileError, fields.ResultTimeout, fields.ResultNoSuchField:
		os.Exit(1)
	}
}

func parseSizeUnit(name string) int {
	switch name {
	case "mm":
		return int(fields.UnitMillimeters)
	case "cm":
		return int(fields.UnitCentimeters)
	case "in":
		return int(fields.UnitInches)
	case "pt":
		return int(fields.UnitPoints)
	}
	log.Fatalf("Unknown size unit: %s (must be mm, cm, in or pt)", name)
	return 0
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: xpdfsearch --field <name> [options] <file.pdf>

Extract one field from a PDF document, or compare a field between two files.

Examples:
  xpdfsearch --field "Number Of Pages" document.pdf
  xpdfsearch --field Text document.pdf
  xpdfsearch --field "Page Width" --unit mm document.pdf
  xpdfsearch --field Text --compare other.pdf document.pdf
  xpdfsearch --list-fields

Options:
`)
	pflag.PrintDefaults()
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("xPDFSearch\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
