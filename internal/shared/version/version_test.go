package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		version  string
		minimum  string
		expected bool
	}{
		{"equal", "1.0.0", "1.0.0", true},
		{"newer minor", "1.2.0", "1.0.0", true},
		{"older", "0.9.0", "1.0.0", false},
		{"v prefix", "v1.0.1", "1.0.0", true},
		{"empty minimum", "0.0.1", "", true},
		{"invalid version", "banana", "1.0.0", false},
		{"empty version", "", "1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AtLeast(tt.version, tt.minimum))
		})
	}
}

func TestHasNewerVersion(t *testing.T) {
	assert.True(t, HasNewerVersion("1.0.0", "1.1.0"))
	assert.False(t, HasNewerVersion("1.1.0", "1.0.0"))
	assert.False(t, HasNewerVersion("1.0.0", ""))
	assert.True(t, HasNewerVersion("dev", "1.0.0"))
}
