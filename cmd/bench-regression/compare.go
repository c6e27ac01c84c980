package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const defaultThreshold = 0.30

// tracked lists the benchmarks and units gated on every change. The
// recovered path covers one coordinated refresh plus a replay.
var tracked = map[string][]string{
	"BenchmarkDoAuthenticated":       {"ns/op", "allocs/op"},
	"BenchmarkDoRecovered":           {"ns/op"},
	"BenchmarkAccessTokenParallel":   {"ns/op"},
	"BenchmarkEnforceSessionTimeout": {"ns/op", "allocs/op"},
	"BenchmarkMetricsIncParallel":    {"ns/op"},
}

// samples maps benchmark name to unit to every observed value.
type samples map[string]map[string][]float64

type row struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
	Delta     float64
}

type report struct {
	Rows     []row
	Failures []string
}

func parse(r io.Reader) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := trimProcs(fields[0])
		if _, ok := tracked[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}

		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], v)
		}
	}
	return out, scanner.Err()
}

func compare(baseline, candidate samples, threshold float64) report {
	names := make([]string, 0, len(tracked))
	for name := range tracked {
		names = append(names, name)
	}
	sort.Strings(names)

	var rep report
	for _, name := range names {
		for _, unit := range tracked[name] {
			base := baseline[name][unit]
			cand := candidate[name][unit]
			if len(base) == 0 || len(cand) == 0 {
				rep.Failures = append(rep.Failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}

			b, c := median(base), median(cand)
			if b <= 0 {
				// allocs/op of zero stays gated: any allocation is a regression.
				if unit == "allocs/op" && b == 0 {
					if c > 0 {
						rep.Failures = append(rep.Failures, fmt.Sprintf("%s %s went from 0 to %.0f", name, unit, c))
					}
					rep.Rows = append(rep.Rows, row{Benchmark: name, Unit: unit, Baseline: b, Candidate: c})
					continue
				}
				rep.Failures = append(rep.Failures, fmt.Sprintf("invalid baseline median for %s %s", name, unit))
				continue
			}

			delta := (c - b) / b
			rep.Rows = append(rep.Rows, row{Benchmark: name, Unit: unit, Baseline: b, Candidate: c, Delta: delta})
			if delta > threshold {
				rep.Failures = append(rep.Failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, delta*100, threshold*100))
			}
		}
	}
	return rep
}

// trimProcs drops the -GOMAXPROCS suffix go test appends to names.
func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
