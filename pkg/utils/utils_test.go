package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane Doe", "jane_doe"},
		{"José Álvarez-Núñez", "jose_alvarez_nunez"},
		{"O'Brien, Jr.", "o_brien__jr_"},
		{"Ünal 2", "unal_2"},
		{"", "resume"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestResumeFilename(t *testing.T) {
	assert.Equal(t, "jane_doe.pdf", ResumeFilename("Jane Doe"))
}

func TestToAbsoluteURL(t *testing.T) {
	base, err := url.Parse("https://www.linkedin.com/hiring/jobs/1/applicants/")
	require.NoError(t, err)

	got, err := ToAbsoluteURL(base, "/ambry/?x=resume.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://www.linkedin.com/ambry/?x=resume.pdf", got)

	got, err = ToAbsoluteURL(base, "https://media.licdn.com/r.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://media.licdn.com/r.pdf", got)

	got, err = ToAbsoluteURL(nil, "https://media.licdn.com/r.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://media.licdn.com/r.pdf", got)
}
