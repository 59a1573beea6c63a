// Package conformance runs named self-check scenarios against fresh
// sessions and reports pass/fail statistics.
package conformance

import (
	"fmt"
	"io"
	"time"

	"github.com/dlclark/regexp2"

	"jscore/pkg/config"
	"jscore/pkg/driver"
)

// Scenario is one self-contained check. Run gets a fresh session and returns
// nil when the property holds.
type Scenario struct {
	Name        string
	Description string
	Run         func(s *driver.Session) error
}

type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (r Result) Passed() bool { return r.Err == nil }

type Stats struct {
	Total    int
	Passed   int
	Failed   int
	Duration time.Duration
}

// Select returns the scenarios whose names match pattern, an ECMAScript
// regular expression. An empty pattern selects everything.
func Select(scenarios []Scenario, pattern string) ([]Scenario, error) {
	if pattern == "" {
		return scenarios, nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid -run pattern: %w", err)
	}
	var selected []Scenario
	for _, sc := range scenarios {
		ok, err := re.MatchString(sc.Name)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", sc.Name, err)
		}
		if ok {
			selected = append(selected, sc)
		}
	}
	return selected, nil
}

// Run executes each scenario in its own session built from cfg. A scenario
// that panics fails with the panic value.
func Run(cfg *config.Config, scenarios []Scenario, opts ...driver.Option) ([]Result, Stats) {
	start := time.Now()
	results := make([]Result, 0, len(scenarios))
	stats := Stats{Total: len(scenarios)}
	for _, sc := range scenarios {
		r := runOne(cfg, sc, opts)
		if r.Passed() {
			stats.Passed++
		} else {
			stats.Failed++
		}
		results = append(results, r)
	}
	stats.Duration = time.Since(start)
	return results, stats
}

func runOne(cfg *config.Config, sc Scenario, opts []driver.Option) (r Result) {
	r.Name = sc.Name
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("panic: %v", p)
		}
		r.Duration = time.Since(start)
	}()

	s, err := driver.NewSession(cfg, opts...)
	if err != nil {
		r.Err = fmt.Errorf("new session: %w", err)
		return r
	}
	r.Err = sc.Run(s)
	ev := s.Logger().Debug().Str("scenario", sc.Name)
	if r.Err != nil {
		ev = ev.Err(r.Err)
	}
	ev.Bool("passed", r.Err == nil).Msg("scenario finished")
	return r
}

// PrintResults writes one line per failed scenario, or per scenario when
// verbose is set.
func PrintResults(w io.Writer, results []Result, verbose bool) {
	for _, r := range results {
		switch {
		case !r.Passed():
			fmt.Fprintf(w, "FAIL %s (%v)\n     %s\n", r.Name, r.Duration.Round(time.Microsecond), driver.Report(r.Err).Error())
		case verbose:
			fmt.Fprintf(w, "PASS %s (%v)\n", r.Name, r.Duration.Round(time.Microsecond))
		}
	}
}

func PrintSummary(w io.Writer, stats Stats) {
	pct := func(n int) float64 {
		if stats.Total == 0 {
			return 0
		}
		return float64(n) / float64(stats.Total) * 100
	}
	fmt.Fprintf(w, "\n=== Conformance Summary ===\n")
	fmt.Fprintf(w, "Total:    %d\n", stats.Total)
	fmt.Fprintf(w, "Passed:   %d (%.1f%%)\n", stats.Passed, pct(stats.Passed))
	fmt.Fprintf(w, "Failed:   %d (%.1f%%)\n", stats.Failed, pct(stats.Failed))
	fmt.Fprintf(w, "Duration: %v\n", stats.Duration)
	fmt.Fprintf(w, "===========================\n")
}
