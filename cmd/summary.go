package cmd

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ran-sim/ran-sim/engine"
)

// printSummary reports the run totals spec'd for stdout, plus the
// additive latency-percentile and per-UE breakdowns.
func printSummary(cfg engine.Config, m *engine.Metrics, withPerUE bool, sim *engine.Simulator) {
	fmt.Println("=== Simulation Summary ===")
	fmt.Printf("TTIs                 : %d\n", cfg.TTIs)
	fmt.Printf("UEs                  : %d\n", cfg.UEs)
	fmt.Printf("RB/TTI               : %d\n", cfg.RB)
	fmt.Printf("Arrivals             : %d\n", m.TotalPackets)
	fmt.Printf("Bits sent            : %d (%.2f Mbit)\n", m.TotalBitsSent, float64(m.TotalBitsSent)/1e6)
	fmt.Printf("Deadline miss rate   : %.2f%%\n", m.MissRate()*100)
	fmt.Printf("Average latency      : %.2f TTIs\n", m.AverageLatency())
	fmt.Printf("RB utilization       : %.2f%%\n", m.Utilization(cfg.TTIs, cfg.RB)*100)

	if p50, p95, p99, ok := latencyPercentiles(m.DeliveredLatencies); ok {
		fmt.Printf("Latency p50/p95/p99  : %.0f/%.0f/%.0f TTIs\n", p50, p95, p99)
	}

	if withPerUE {
		fmt.Println("--- Per-UE ---")
		fmt.Printf("%-6s %14s %12s %10s %9s\n", "ue", "bits_sent", "delivered", "missed", "queue")
		for _, u := range sim.UESummaries() {
			fmt.Printf("%-6d %14d %12d %10d %9d\n", u.ID, u.BitsSentTotal, u.PktsDelivered, u.PktsMissed, u.QueueLen)
		}
	}
}

// latencyPercentiles returns p50/p95/p99 over samples, via
// gonum.org/v1/gonum/stat.Quantile. ok is false if samples is empty.
func latencyPercentiles(samples []int64) (p50, p95, p99 float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, 0, false
	}
	xs := make([]float64, len(samples))
	for i, v := range samples {
		xs[i] = float64(v)
	}
	sort.Float64s(xs)

	p50 = stat.Quantile(0.50, stat.Empirical, xs, nil)
	p95 = stat.Quantile(0.95, stat.Empirical, xs, nil)
	p99 = stat.Quantile(0.99, stat.Empirical, xs, nil)
	return p50, p95, p99, true
}
