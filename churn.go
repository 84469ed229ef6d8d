package main

import (
	"mooalloc/internal/heap"
	"mooalloc/internal/util"

	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var (
	churnOps	int
	churnLive	int
	churnMax	uint64
	churnSeed	uint64
)

func newChurnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "churn",
		Short: "Run a random allocate/release workload and report fragmentation",
		Long: `churn keeps up to --live allocations of random size alive, releasing the
oldest when full, and verifies the directory after every operation.

Example:
  mooalloc churn --ops 100000 --max 4096
  mooalloc churn --provider mmap --reserve 67108864`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChurn()
		},
	}
	cmd.Flags().IntVar(&churnOps, "ops", 10000, "Number of operations")
	cmd.Flags().IntVar(&churnLive, "live", 256, "Maximum live allocations")
	cmd.Flags().Uint64Var(&churnMax, "max", 2048, "Maximum allocation size")
	cmd.Flags().Uint64Var(&churnSeed, "seed", 1, "Workload seed")
	return cmd
}

func runChurn() error {
	if churnLive <= 0 || churnMax == 0 { return fmt.Errorf("--live and --max must be positive") }

	h, err := createHeap()
	if err != nil { return err }
	defer h.Close()

	live := util.CreateQueue[heap.Ptr](churnLive)
	x := churnSeed
	for i := range churnOps {
		x = util.Hash(x)
		if live.Full() || (live.Cnt() > 0 && x % 3 == 0) {
			h.Free(live.Take(int(x >> 8) % live.Cnt()))
		} else {
			p, err := h.Alloc(1 + (x >> 16) % churnMax)
			if err != nil { return fmt.Errorf("op %d: %w", i, err) }
			live.Push(p)
		}
		if err := h.Verify(); err != nil { return fmt.Errorf("op %d: %w", i, err) }
	}

	st := h.Stats()
	frag := 0.0
	if st.FreeBytes > 0 {
		frag = 1 - float64(st.LargestFree) / float64(st.FreeBytes)
	}
	slog.Info("churn", "ops", churnOps, "live", live.Cnt(), "region", st.Region,
		"blocks", st.Blocks, "free", st.FreeBlocks, "fragmentation", fmt.Sprintf("%.3f", frag))
	fmt.Print(h)
	return nil
}
