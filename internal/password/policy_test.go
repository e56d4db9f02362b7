package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	policy := Policy{MinLength: 12}

	cases := []struct {
		name     string
		username string
		password string
		wantErr  string
	}{
		{"accepts strong password", "alice", "correct horse battery", ""},
		{"rejects short", "alice", "short1?", "too short"},
		{"rejects numeric only", "alice", "123456789012345", "entirely numeric"},
		{"rejects common", "alice", "password12345", "too common"},
		{"common check is case insensitive", "alice", "PASSWORD12345", "too common"},
		{"rejects username inside password", "alice", "my-alice-passphrase", "too similar"},
		{"rejects password inside username", "christopher-longname", "christopher-l", "too similar"},
		{"short usernames never similar", "al", "al-al-al-al-al", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.Validate(tc.username, tc.password)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrWeak)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateDefaultMinLength(t *testing.T) {
	policy := Policy{}

	err := policy.Validate("alice", "elevenchars")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 12 characters")

	assert.NoError(t, policy.Validate("alice", "twelve chars"))
}
