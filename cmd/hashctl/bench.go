package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/netip"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/tamirms/nfthash"
	"github.com/tamirms/nfthash/flow"
)

// getMaxRSS returns the peak resident set size in bytes.
func getMaxRSS() uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// Linux reports kilobytes, macOS bytes.
	maxRSS := uint64(ru.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024
	}
	return maxRSS
}

// maxBenchModulus bounds the per-worker bucket histograms.
const maxBenchModulus = 1 << 24

type benchOptions struct {
	workers int
	n       int
	inputs  int
	length  int
	modulus uint32
}

type benchResult struct {
	name     string
	evals    uint64
	elapsed  time.Duration
	chi2     float64
	buckets  int
	maxShare float64
}

func newBenchCmd(a *app) *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure evaluation throughput and bucket distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.workers == 0 {
				opts.workers = a.env.BenchWorkers
			}
			if opts.workers <= 0 {
				opts.workers = runtime.GOMAXPROCS(0)
			}
			if opts.n <= 0 || opts.inputs <= 0 || opts.modulus == 0 {
				return fmt.Errorf("--n, --inputs and --modulus must be positive")
			}
			if opts.modulus > maxBenchModulus {
				return fmt.Errorf("--modulus must be at most %d", maxBenchModulus)
			}
			if opts.length <= 0 || opts.length > nfthash.MaxDataLen {
				return fmt.Errorf("--len must be in [1, %d]", nfthash.MaxDataLen)
			}

			baseline := getMaxRSS()
			results, err := runBenchmarks(cmd.Context(), a.log, opts)
			if err != nil {
				return err
			}
			printBench(cmd.OutOrStdout(), opts, results)
			var growth uint64
			if peak := getMaxRSS(); peak > baseline {
				growth = peak - baseline
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "peak RSS growth: %.1f MB\n", float64(growth)/1_000_000)
			return err
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "parallel workers (default $HASHCTL_BENCH_WORKERS or GOMAXPROCS)")
	cmd.Flags().IntVar(&opts.n, "n", 1_000_000, "evaluations per worker")
	cmd.Flags().IntVar(&opts.inputs, "inputs", 1<<16, "distinct random inputs")
	cmd.Flags().IntVar(&opts.length, "len", 16, "content length in bytes")
	cmd.Flags().Uint32Var(&opts.modulus, "modulus", 64, "number of buckets")
	return cmd
}

// runBenchmarks evaluates every content function and the symmetric hash
// over the same random inputs.
func runBenchmarks(ctx context.Context, log *zap.Logger, opts benchOptions) ([]benchResult, error) {
	inputs := make([][]byte, opts.inputs)
	for i := range inputs {
		inputs[i] = make([]byte, opts.length)
		_, _ = rand.Read(inputs[i]) // crypto/rand.Read never fails on supported platforms
	}
	hasher := flow.NewHasher(0)
	pkts := make([]nfthash.Packet, opts.inputs)
	for i := range pkts {
		var b [10]byte
		_, _ = rand.Read(b[:])
		t := flow.Tuple{
			Src:   netip.AddrPortFrom(netip.AddrFrom4([4]byte(b[0:4])), uint16(b[8])<<8|uint16(b[9])),
			Dst:   netip.AddrPortFrom(netip.AddrFrom4([4]byte(b[4:8])), 443),
			Proto: 6,
		}
		pkts[i] = hasher.Packet(t)
	}

	var results []benchResult
	for _, fn := range contentFuncs {
		attrs := nfthash.Attrs{
			SReg:    nfthash.Ptr(nfthash.Reg1),
			DReg:    nfthash.Ptr(nfthash.Reg32(15)),
			Len:     nfthash.Ptr(uint32(opts.length)),
			Modulus: nfthash.Ptr(opts.modulus),
			Func:    nfthash.Ptr(fn),
		}
		e, err := nfthash.New(attrs, nfthash.WithLogger(log))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn, err)
		}
		res, err := benchExpr(ctx, e, inputs, nil, opts)
		if err != nil {
			return nil, err
		}
		res.name = "jhash/" + fn.String()
		results = append(results, res)
	}

	e, err := nfthash.New(nfthash.Attrs{
		Type:    nfthash.Ptr(nfthash.HashSymmetric),
		DReg:    nfthash.Ptr(nfthash.Reg32(15)),
		Modulus: nfthash.Ptr(opts.modulus),
	}, nfthash.WithLogger(log))
	if err != nil {
		return nil, err
	}
	res, err := benchExpr(ctx, e, nil, pkts, opts)
	if err != nil {
		return nil, err
	}
	res.name = "symhash"
	results = append(results, res)

	return results, nil
}

// benchExpr runs e on opts.workers goroutines, each with its own register
// file and bucket counts. Content expressions read inputs; symmetric ones
// read pkts.
func benchExpr(ctx context.Context, e *nfthash.Expr, inputs [][]byte, pkts []nfthash.Packet, opts benchOptions) (benchResult, error) {
	sreg := nfthash.ParseRegister(nfthash.Reg1)
	dest := e.Dest()
	perWorker := make([][]uint64, opts.workers)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < opts.workers; w++ {
		g.Go(func() error {
			counts := make([]uint64, opts.modulus)
			var regs nfthash.RegisterSet
			var pkt nfthash.Packet
			for i := 0; i < opts.n; i++ {
				if i&4095 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				idx := (w*opts.n + i) % opts.inputs
				if inputs != nil {
					regs.Store(sreg, inputs[idx])
				} else {
					pkt = pkts[idx]
				}
				e.Eval(&regs, pkt)
				counts[regs.Uint32(dest)]++
			}
			perWorker[w] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return benchResult{}, err
	}
	elapsed := time.Since(start)

	counts := make([]uint64, opts.modulus)
	for _, wc := range perWorker {
		for i, c := range wc {
			counts[i] += c
		}
	}
	total := uint64(opts.workers) * uint64(opts.n)
	return benchResult{
		evals:    total,
		elapsed:  elapsed,
		chi2:     chiSquare(counts, total),
		buckets:  len(counts),
		maxShare: maxShare(counts, total),
	}, nil
}

// chiSquare returns the chi-square statistic of counts against a uniform
// distribution of total observations.
func chiSquare(counts []uint64, total uint64) float64 {
	if len(counts) == 0 || total == 0 {
		return 0
	}
	expected := float64(total) / float64(len(counts))
	var chi2 float64
	for _, c := range counts {
		d := float64(c) - expected
		chi2 += d * d / expected
	}
	return chi2
}

// maxShare returns the largest bucket's share of total, scaled so that a
// perfectly uniform distribution gives 1.
func maxShare(counts []uint64, total uint64) float64 {
	if len(counts) == 0 || total == 0 {
		return 0
	}
	var top uint64
	for _, c := range counts {
		top = max(top, c)
	}
	return float64(top) * float64(len(counts)) / float64(total)
}

func printBench(w io.Writer, opts benchOptions, results []benchResult) {
	fmt.Fprintf(w, "workers=%d n=%d inputs=%d len=%d modulus=%d\n\n",
		opts.workers, opts.n, opts.inputs, opts.length, opts.modulus)
	fmt.Fprintf(w, "%-16s %12s %10s %12s %10s\n", "hash", "Mevals/s", "ns/eval", "chi2 (df)", "max/avg")
	for _, r := range results {
		secs := r.elapsed.Seconds()
		fmt.Fprintf(w, "%-16s %12.2f %10.2f %7.1f (%d) %10.3f\n",
			r.name,
			float64(r.evals)/secs/1_000_000,
			float64(r.elapsed.Nanoseconds())/float64(r.evals)*float64(opts.workers),
			r.chi2, r.buckets-1,
			r.maxShare)
	}
}
