package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid password", password: "SecurePass123!"},
		{name: "minimum length", password: "Pass123!"},
		{name: "maximum length", password: strings.Repeat("x", MaxPasswordLength)},
		{name: "too short", password: "short", wantErr: true},
		{name: "empty", password: "", wantErr: true},
		{name: "too long", password: strings.Repeat("x", MaxPasswordLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed, err := Hash(tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPasswordLength)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hashed)
			assert.True(t, strings.HasPrefix(hashed, "$2a$12$"), "not a cost 12 bcrypt hash")
		})
	}
}

func TestHash_Salted(t *testing.T) {
	h1, err := Hash("SamePassword123!")
	require.NoError(t, err)
	h2, err := Hash("SamePassword123!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestCompare(t *testing.T) {
	const password = "MySecurePassword123!"
	hashed, err := Hash(password)
	require.NoError(t, err)

	assert.NoError(t, Compare(hashed, password))
	assert.ErrorIs(t, Compare(hashed, "WrongPassword"), ErrMismatch)
	assert.ErrorIs(t, Compare(hashed, strings.ToUpper(password)), ErrMismatch)
	assert.ErrorIs(t, Compare(hashed, ""), ErrMismatch)

	err = Compare("not-a-hash", password)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMismatch)
}
