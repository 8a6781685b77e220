package handlers

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAPIKeyFormat(t *testing.T) {
	keyPattern := regexp.MustCompile(`^nr_live_[0-9a-f]{64}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key, err := generateAPIKey()
		require.NoError(t, err)
		assert.Regexp(t, keyPattern, key)
		assert.False(t, seen[key], "generated a duplicate key")
		seen[key] = true
	}
}

func TestParseDomains(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"example.com", []string{"example.com"}},
		{"example.com, app.example.com", []string{"example.com", "app.example.com"}},
		{"example.com\napp.example.com\r\n", []string{"example.com", "app.example.com"}},
		{" , ,\n ", []string{}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseDomains(tc.in), "input %q", tc.in)
	}
}
