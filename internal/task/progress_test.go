package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(3<<19))
	assert.Equal(t, "2.0 GiB", FormatBytes(2<<30))
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "500 B/s", FormatSpeed(500))
	assert.Equal(t, "2.0 KiB/s", FormatSpeed(2048))
	assert.Equal(t, "1.5 MiB/s", FormatSpeed(1.5*(1<<20)))
}

func TestFormatJobLine(t *testing.T) {
	v := View{
		Kind:        KindDownload,
		Locator:     "https://x/ifile",
		Transferred: 1 << 20,
		Total:       4 << 20,
		Rate:        250,
		Speed:       1 << 20,
		TotalItems:  1,
	}
	line := FormatJobLine(v)
	assert.Contains(t, line, "↓")
	assert.Contains(t, line, "25.0%")
	assert.Contains(t, line, "1.0 MiB/s")
	assert.NotContains(t, line, "chunk")

	v.Kind = KindUpload
	v.TotalItems = 5
	v.DoneItems = 2
	line = FormatJobLine(v)
	assert.Contains(t, line, "↑")
	assert.Contains(t, line, "[chunk 2/5]")
}

func TestFormatSummaryLine(t *testing.T) {
	assert.Equal(t, "3 transfers running, 1 finished", FormatSummaryLine(3, 1))
}
