// Command gen-roster writes a synthetic, self-consistent input set for
// smoke-testing the assignment pipeline.
package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/okian/muster/internal/synthetic"
)

// Default generation parameters.
const (
	defaultCandidates = 200
	defaultSheets     = 3
	defaultPositions  = 8
	defaultSeed       = 42
)

func main() {
	var (
		outDir     = flag.String("out", "input", "Directory to write the CSV tables into")
		candidates = flag.Int("candidates", defaultCandidates, "Number of ordinary volunteers")
		sheets     = flag.Int("sheets", defaultSheets, "Number of interview sheets")
		positions  = flag.Int("positions", defaultPositions, "Number of positions")
		seed       = flag.Int64("seed", defaultSeed, "Random seed (fixed for reproducible sets)")
	)
	flag.Parse()

	gen := synthetic.New(
		synthetic.WithSeed(*seed),
		synthetic.WithCandidates(*candidates),
		synthetic.WithSheets(*sheets),
		synthetic.WithPositions(*positions),
	)

	paths, err := gen.WriteTo(*outDir)
	if err != nil {
		os.Stderr.WriteString("generate input set: " + err.Error() + "\n")
		os.Exit(1)
	}
	os.Stdout.WriteString("wrote " + strconv.Itoa(len(paths)) + " tables to " + *outDir + "\n")
}
