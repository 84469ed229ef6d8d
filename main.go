package main

import (
	c "mooalloc/internal"
	"mooalloc/internal/heap"
	"mooalloc/internal/region"
	"mooalloc/internal/util"

	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	providerKind	string
	regionBytes		uint64
	reserveBytes	uint64
	granularity		uint64
	logLevel		string
)

var rootCmd = &cobra.Command{
	Use:   "mooalloc",
	Short: "Boundary-tag heap allocator demo",
	Long: `mooalloc runs a best-fit, immediately coalescing allocator over a single
growable region and prints the block directory as it changes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		if err := level.UnmarshalText([]byte(logLevel)); err != nil {
			return fmt.Errorf("bad --log-level %q: %w", logLevel, err)
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScenario()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&providerKind, "provider", "slice", "Region provider: slice or mmap")
	rootCmd.PersistentFlags().Uint64Var(&regionBytes, "region", c.DEFAULT_REGION, "Initial region size in bytes")
	rootCmd.PersistentFlags().Uint64Var(&reserveBytes, "reserve", c.DEFAULT_RESERVE, "Address space reserved for growth")
	rootCmd.PersistentFlags().Uint64Var(&granularity, "granularity", 0x1000, "Growth granularity of the slice provider")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	rootCmd.AddCommand(newChurnCmd())
}

func createProvider() (region.Provider, error) {
	switch providerKind {
	case "slice":
		r, err := region.CreateSliceRegion(reserveBytes, granularity)
		if err != nil { return nil, err }
		return r, nil
	case "mmap":
		return createMmapProvider(reserveBytes)
	}
	return nil, fmt.Errorf("%w: unknown provider %q", region.ErrInvalidArg, providerKind)
}

func createHeap() (*heap.Heap, error) {
	prov, err := createProvider()
	if err != nil { return nil, err }
	h := heap.CreateHeap(prov)
	if err := h.Init(regionBytes); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Three allocations, then free the middle one and the first one to watch them
// merge.
func runScenario() error {
	h, err := createHeap()
	if err != nil { return err }
	defer h.Close()

	ptrs := make([]heap.Ptr, 0, 3)
	for _, size := range []uint64{100, 2000, 300} {
		p, err := h.Alloc(size)
		if err != nil { return err }
		util.FillPattern(h.Bytes(p), uint64(p))
		ptrs = append(ptrs, p)
		slog.Info("Alloc", "size", size, "ptr", p)
	}
	fmt.Print(h)

	h.Free(ptrs[1])
	slog.Info("Free", "ptr", ptrs[1])
	fmt.Print(h)

	h.Free(ptrs[0])
	slog.Info("Free", "ptr", ptrs[0])
	fmt.Print(h)

	fmt.Print(util.PrettyPrintBytes(h.Bytes(ptrs[2]), uint64(ptrs[2]), 64))
	return h.Verify()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
