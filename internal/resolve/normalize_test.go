package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/secretcache/internal/resolve"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"db-password", "db-password"},
		{"db.password", "db-password"},
		{"DB_Password", "db-password"},
		{"app/db//password", "app-db-password"},
		{"--leading-and-trailing--", "leading-and-trailing"},
		{"a...b", "a-b"},
		{"  spaced name  ", "spaced-name"},
		{"café-key", "caf-key"},
		{"Mixed--Case", "mixed-case"},
		{"123", "123"},
		{"...", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve.Normalize(tt.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"db.password", "A__B", "-x-", "ümlaut/ß", "tab\there", "already-ok",
		"keycloak_realm_client-secret", "...---...", "x" + string(rune(0)) + "y",
	}
	for _, in := range inputs {
		once := resolve.Normalize(in)
		assert.Equal(t, once, resolve.Normalize(once), in)
	}
}
