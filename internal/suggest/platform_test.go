package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformCompatible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mask     string
		platform string
		want     bool
	}{
		{"no request platform", "linux", "", true},
		{"empty mask", "", "windows", true},
		{"others token", "windows,others", "linux", true},
		{"listed", "linux,macos", "linux", true},
		{"listed case-insensitive", "Linux,macOS", "LINUX", true},
		{"not listed", "linux,macos", "windows", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PlatformCompatible(tt.mask, tt.platform))
		})
	}
}
