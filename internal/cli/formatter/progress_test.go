package formatter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderProgress(t *testing.T) {
	tests := []struct {
		name       string
		pct        float64
		width      int
		wantFilled int
		wantLabel  string
	}{
		{"empty", 0, 10, 0, "  0%"},
		{"half", 50, 10, 5, " 50%"},
		{"full", 100, 10, 10, "100%"},
		{"over clamps", 180, 10, 10, "100%"},
		{"negative clamps", -20, 10, 0, "  0%"},
		{"tiny width clamps to 2", 50, 1, 1, " 50%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderProgress(tt.pct, tt.width)
			assert.Equal(t, tt.wantFilled, strings.Count(got, filledBlock))
			assert.True(t, strings.HasSuffix(got, tt.wantLabel), "got %q", got)
			assert.True(t, strings.HasPrefix(got, "["))
		})
	}
}
