package tracestats

// Report is the result of one aggregation run.
type Report struct {
	PrivatePages uint64 `json:"private_pages" yaml:"private_pages"`
	SharedPages  uint64 `json:"shared_pages" yaml:"shared_pages"`
	Pages4K      uint64 `json:"pages_4k" yaml:"pages_4k"`
	Pages2M      uint64 `json:"pages_2m" yaml:"pages_2m"`

	// Lines is the number of trace lines read.
	Lines uint64 `json:"lines" yaml:"lines"`

	// SkippedSizes counts size values that failed to parse and were skipped.
	// It stays zero unless Options.SkipInvalidSize is set.
	SkippedSizes uint64 `json:"skipped_sizes" yaml:"skipped_sizes"`
}

// Add returns the sum of r and other.
func (r Report) Add(other Report) Report {
	return Report{
		PrivatePages: r.PrivatePages + other.PrivatePages,
		SharedPages:  r.SharedPages + other.SharedPages,
		Pages4K:      r.Pages4K + other.Pages4K,
		Pages2M:      r.Pages2M + other.Pages2M,
		Lines:        r.Lines + other.Lines,
		SkippedSizes: r.SkippedSizes + other.SkippedSizes,
	}
}
