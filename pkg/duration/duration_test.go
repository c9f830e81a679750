package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"500ms", 500, true},
		{"500", 500, true},
		{"2s", 2000, true},
		{"1.5s", 1500, true},
		{"2m", 120_000, true},
		{"2h", 7_200_000, true},
		{"1d", 86_400_000, true},
		{"2H", 7_200_000, true},
		{" 10s ", 10_000, true},
		{"0.0015s", 1, true},
		{"", 0, false},
		{"abc", 0, false},
		{"-5s", 0, false},
		{"5 s", 0, false},
		{"5w", 0, false},
		{"1.s", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOr(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseOr("90s", time.Minute))
	assert.Equal(t, time.Minute, ParseOr("soon", time.Minute))
	assert.Equal(t, time.Minute, ParseOr("", time.Minute))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "2d", Format(48*time.Hour))
	assert.Equal(t, "36h", Format(36*time.Hour))
	assert.Equal(t, "2h", Format(2*time.Hour))
	assert.Equal(t, "1m", Format(time.Minute))
	assert.Equal(t, "2m", Format(90*time.Second))
	assert.Equal(t, "45s", Format(45*time.Second))
	assert.Equal(t, "250ms", Format(250*time.Millisecond))
}
