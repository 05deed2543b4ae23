// Package tracestats aggregates page conversion statistics from a QEMU
// kvm_convert_memory trace, e.g. one produced by
//
//	qemu-system-x86_64 ... -trace enable=kvm_convert_memory,file=/tmp/trace.out
package tracestats

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"convtrace_stats/internal/logger"

	"github.com/phuslu/log"
)

const sizeToken = "size"

// Options controls an aggregation run.
type Options struct {
	// SkipInvalidSize skips a size value that is not valid hexadecimal instead
	// of failing the whole run. The skipped occurrences are counted in
	// Report.SkippedSizes.
	SkipInvalidSize bool

	// Logger overrides the component logger.
	Logger *log.Logger
}

// Aggregator turns a trace into a Report. It holds no state between runs and
// is safe for concurrent use.
type Aggregator struct {
	opts Options
	log  log.Logger
}

// NewAggregator creates an aggregator with the given options.
func NewAggregator(opts Options) *Aggregator {
	a := &Aggregator{opts: opts}
	if opts.Logger != nil {
		a.log = *opts.Logger
	} else {
		a.log = logger.NewLoggerWithContext("aggregator")
	}
	return a
}

// Aggregate is shorthand for NewAggregator(opts).Aggregate(path).
func Aggregate(path string, opts Options) (Report, error) {
	return NewAggregator(opts).Aggregate(path)
}

// Aggregate reads the whole trace file at path and aggregates it.
func (a *Aggregator) Aggregate(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read trace file %s: %w", path, err)
	}
	a.log.Debug().Str("path", path).Int("bytes", len(data)).Msg("Trace file loaded")

	r, err := a.AggregateLines(splitLines(string(data)))
	if err != nil {
		return Report{}, fmt.Errorf("trace file %s: %w", path, err)
	}
	return r, nil
}

// AggregateReader reads r to EOF and aggregates its content.
func (a *Aggregator) AggregateReader(r io.Reader) (Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read trace: %w", err)
	}
	return a.AggregateLines(splitLines(string(data)))
}

// AggregateLines aggregates trace lines that were already split. Either a
// complete Report or an error is returned, never both.
func (a *Aggregator) AggregateLines(lines []string) (Report, error) {
	var (
		sizes       PageSizes
		transitions Transitions
		skipped     uint64
	)

	for n, line := range lines {
		tokens := strings.Fields(line)
		for i, token := range tokens {
			if token == sizeToken && i+1 < len(tokens) {
				size, err := parseSize(tokens[i+1])
				if err != nil {
					perr := &ParseError{Line: n + 1, Token: tokens[i+1], Err: err}
					if !a.opts.SkipInvalidSize {
						return Report{}, perr
					}
					skipped++
					a.log.Warn().Err(perr).Int("line", n+1).Msg("Skipping invalid size value")
				} else {
					sizes = Classify(size, sizes)
				}
			}

			transitions.Observe(token)
		}
	}

	report := Report{
		PrivatePages: transitions.Private,
		SharedPages:  transitions.Shared,
		Pages4K:      sizes.Pages4K,
		Pages2M:      sizes.Pages2M,
		Lines:        uint64(len(lines)),
		SkippedSizes: skipped,
	}

	a.log.Debug().
		Uint64("lines", report.Lines).
		Uint64("shared_pages", report.SharedPages).
		Uint64("private_pages", report.PrivatePages).
		Uint64("pages_4k", report.Pages4K).
		Uint64("pages_2m", report.Pages2M).
		Uint64("skipped_sizes", report.SkippedSizes).
		Msg("Trace aggregated")

	return report, nil
}

// parseSize decodes an unsigned hexadecimal token with an optional 0x prefix.
func parseSize(token string) (uint64, error) {
	digits := token
	if len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	return strconv.ParseUint(digits, 16, 64)
}

// splitLines splits content after every newline. A trailing line without a
// newline is kept; empty content has no lines.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
