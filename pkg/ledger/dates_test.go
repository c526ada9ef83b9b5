package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	feb18 := time.Date(2026, time.February, 18, 0, 0, 0, 0, time.UTC)
	jan13 := time.Date(2026, time.January, 13, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-02-18", feb18},
		{"2026-02-18 05:31:21", feb18},
		{"2026-02-18T05:31:21Z", feb18},
		{"JAN 13, 2026 02:01PM", jan13},
		{"Jan 13, 2026 2:01 pm", jan13},
		{"jan 13, 2026", jan13},
		{"January 13, 2026", jan13},
		{"01/13/2026", jan13},
		{"1/13/2026", jan13},
		{"  2026-01-13  ", jan13},
		{"", Epoch},
		{"yesterday", Epoch},
		{"13/13/2026", Epoch},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in)
			assert.True(t, got.Equal(tt.want), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestFormatCSVDate(t *testing.T) {
	assert.Equal(t, "01/13/2026", FormatCSVDate("JAN 13, 2026 02:01PM"))
	assert.Equal(t, "02/18/2026", FormatCSVDate("2026-02-18 05:31:21"))
	assert.Equal(t, "pending review", FormatCSVDate("pending review 10:15AM"))
	assert.Equal(t, "", FormatCSVDate(""))
}
