package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"convtrace_stats/internal/config"
	"convtrace_stats/internal/tracestats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var testReport = tracestats.Report{
	PrivatePages: 1,
	SharedPages:  2,
	Pages4K:      3,
	Pages2M:      4,
	Lines:        6,
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, config.FormatText, testReport))

	want := "Total number of shared pages: 2\n" +
		"Total number of private pages: 1\n" +
		"Total number of 4K pages: 3\n" +
		"Total number of 2M pages: 4\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, tracestats.Report{}))
	assert.Equal(t, "Total number of shared pages: 0\n"+
		"Total number of private pages: 0\n"+
		"Total number of 4K pages: 0\n"+
		"Total number of 2M pages: 0\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, config.FormatJSON, testReport))

	var got map[string]uint64
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, map[string]uint64{
		"private_pages": 1,
		"shared_pages":  2,
		"pages_4k":      3,
		"pages_2m":      4,
		"lines":         6,
		"skipped_sizes": 0,
	}, got)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, config.FormatYAML, testReport))

	assert.Contains(t, buf.String(), "shared_pages: 2\n")
	assert.Contains(t, buf.String(), "pages_2m: 4\n")

	var got tracestats.Report
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, testReport, got)
}

func TestWritePrometheus(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, config.FormatPrometheus, testReport))

	out := buf.String()
	assert.Contains(t, out, "# TYPE convtrace_pages_total counter\n")
	assert.Contains(t, out, `convtrace_pages_total{page_size="2m"} 4`)
	assert.Contains(t, out, `convtrace_page_conversions_total{direction="private_to_shared"} 2`)
	assert.Contains(t, out, `convtrace_page_conversions_total{direction="shared_to_private"} 1`)
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "xml", testReport))
	assert.Empty(t, buf.String())
}
