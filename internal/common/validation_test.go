package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameRules(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"plain pdf", "report.pdf", false},
		{"markdown", "notes.MD", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"traversal", "../etc/passwd.txt", true},
		{"separator", "a/b.txt", true},
		{"backslash", `a\b.txt`, true},
		{"control char", "bad\x00name.txt", true},
		{"newline", "bad\nname.txt", true},
		{"pipe", "a|b.txt", true},
		{"unsupported ext", "image.png", true},
		{"no ext", "README", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator().Field("filename", tt.filename, Required, SafeFilename, AllowedExtension)
			err := v.Err()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Equal(t, 400, HTTPStatus(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatorCollectsOneErrorPerField(t *testing.T) {
	v := NewValidator().
		Field("email", "", Required, Email).
		Field("password", "abc", Required, MinLength(6))

	require.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.Contains(t, v.ErrorMessage(), "email is required")
	assert.Contains(t, v.ErrorMessage(), "password must be at least 6 characters")
}

func TestEmail(t *testing.T) {
	assert.Nil(t, Email("email", "user@example.com"))
	assert.NotNil(t, Email("email", "User <user@example.com>"))
	assert.NotNil(t, Email("email", "not-an-email"))
}
