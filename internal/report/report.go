// Package report renders a tracestats.Report in the supported output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"convtrace_stats/internal/collectors/convstat"
	"convtrace_stats/internal/config"
	"convtrace_stats/internal/tracestats"

	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

// Write renders r to w in the given format.
func Write(w io.Writer, format string, r tracestats.Report) error {
	switch format {
	case config.FormatText, "":
		return WriteText(w, r)
	case config.FormatJSON:
		return WriteJSON(w, r)
	case config.FormatYAML:
		return WriteYAML(w, r)
	case config.FormatPrometheus:
		return WritePrometheus(w, r)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// WriteText prints the four counters with their fixed labels.
func WriteText(w io.Writer, r tracestats.Report) error {
	_, err := fmt.Fprintf(w,
		"Total number of shared pages: %d\n"+
			"Total number of private pages: %d\n"+
			"Total number of 4K pages: %d\n"+
			"Total number of 2M pages: %d\n",
		r.SharedPages, r.PrivatePages, r.Pages4K, r.Pages2M)
	return err
}

func WriteJSON(w io.Writer, r tracestats.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func WriteYAML(w io.Writer, r tracestats.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}

// WritePrometheus writes the exposition text produced by the conversion collector.
func WritePrometheus(w io.Writer, r tracestats.Report) error {
	reg, err := convstat.NewRegistry(r)
	if err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
