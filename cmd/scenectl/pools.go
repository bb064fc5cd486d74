package main

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/scenecore"
)

var (
	poolAllocs  int
	poolMaxSize int
	poolFreePct int
	poolSeed    uint64
	poolWidth   int
)

func init() {
	cmd := newPoolsCmd()
	cmd.Flags().IntVar(&poolAllocs, "allocs", 256, "Number of allocations in the synthetic workload")
	cmd.Flags().IntVar(&poolMaxSize, "max-size", 12<<10, "Largest allocation size in bytes")
	cmd.Flags().IntVar(&poolFreePct, "free", 50, "Percentage of allocations freed again")
	cmd.Flags().Uint64Var(&poolSeed, "seed", 1, "Workload seed")
	cmd.Flags().IntVar(&poolWidth, "width", 64, "Blocks per row")
	rootCmd.AddCommand(cmd)
}

func newPoolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "Show block pool occupancy after a synthetic workload",
		Long: `The pools command runs a seeded allocate/free workload against the
tiered allocator and renders the occupancy of the small and medium block
pools, one cell per block.

Example:
  scenectl pools --allocs 1000 --free 30
  scenectl pools --max-size 1024 --width 128`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPools(cmd)
		},
	}
}

type allocation struct {
	buf  []byte
	size int
}

func runPools(cmd *cobra.Command) error {
	if poolMaxSize <= 0 || poolWidth <= 0 {
		return fmt.Errorf("--max-size and --width must be positive")
	}

	w, _, err := newWorld()
	if err != nil {
		return err
	}
	defer w.Close()

	rng := rand.New(rand.NewPCG(poolSeed, poolSeed^0x9e3779b97f4a7c15))

	var (
		live   []allocation
		failed int
	)
	for i := 0; i < poolAllocs; i++ {
		size := 1 + rng.IntN(poolMaxSize)
		b, err := w.Alloc(size)
		if err != nil {
			failed++
			continue
		}
		live = append(live, allocation{buf: b, size: size})
	}

	rng.Shuffle(len(live), func(i, j int) { live[i], live[j] = live[j], live[i] })
	toFree := len(live) * poolFreePct / 100
	for _, a := range live[:toFree] {
		if err := w.Free(a.buf, a.size); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, p := range w.BlockPools() {
		fmt.Fprintln(out, renderPool(p, poolWidth))
	}

	st := w.Stats().Tiers
	fmt.Fprintln(out, section("Tiers",
		field("Small", fmt.Sprintf("%d allocs, %d frees, %d failures", st.Small.Allocs, st.Small.Frees, st.Small.Failures)),
		field("Medium", fmt.Sprintf("%d allocs, %d frees, %d failures", st.Medium.Allocs, st.Medium.Frees, st.Medium.Failures)),
		field("Large", fmt.Sprintf("%d allocs, %d frees, %d B live", st.Large.Allocs, st.Large.Frees, st.Large.InUse)),
		field("Rejected", failed),
	))
	return nil
}

func renderPool(p scenecore.BlockPoolInfo, width int) string {
	var rows []string
	var row strings.Builder
	col := 0
	for _, r := range p.Runs {
		style, glyph := freeStyle, "·"
		if r.Used {
			style, glyph = usedStyle, "█"
		}
		for n := r.Length; n > 0; {
			take := min(n, width-col)
			row.WriteString(style.Render(strings.Repeat(glyph, take)))
			col += take
			n -= take
			if col == width {
				rows = append(rows, row.String())
				row.Reset()
				col = 0
			}
		}
	}
	if col > 0 {
		rows = append(rows, row.String())
	}

	pct := 0.0
	if p.BlockCount > 0 {
		pct = 100 * float64(p.Used) / float64(p.BlockCount)
	}
	header := []string{
		field("Block size", fmt.Sprintf("%d B", p.BlockSize)),
		field("Used", fmt.Sprintf("%d / %d (%.1f%%)", p.Used, p.BlockCount, pct)),
		field("Runs", len(p.Runs)),
		"",
	}
	return section(fmt.Sprintf("Pool %s", p.Name), append(header, rows...)...)
}
