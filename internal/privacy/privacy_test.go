package privacy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "deployment id",
			in:   "https://script.google.com/macros/s/AKfycbx123456/exec",
			want: "https://script.google.com/macros/s/AKfy***/exec",
		},
		{
			name: "short id",
			in:   "https://script.google.com/macros/s/abc/exec",
			want: "https://script.google.com/macros/s/***/exec",
		},
		{
			name: "credentials and query",
			in:   "http://user:pw@localhost:8090/?action=getSubmissions",
			want: "http://localhost:8090/?action=redacted",
		},
		{
			name: "plain path untouched",
			in:   "http://127.0.0.1:8090/",
			want: "http://127.0.0.1:8090/",
		},
		{
			name: "not a url",
			in:   "::::",
			want: "[redacted-url]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RedactURL(tt.in))
		})
	}
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	msg := `Post "https://script.google.com/macros/s/AKfycbx123456/exec": dial tcp: lookup failed`
	assert.Equal(t, `Post "https://script.google.com/macros/s/AKfy***/exec": dial tcp: lookup failed`, ScrubMessage(msg))
	assert.Equal(t, "no urls here", ScrubMessage("no urls here"))
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil))

	base := errors.New("GET https://script.google.com/macros/s/AKfycbx123456/exec failed")
	wrapped := WrapError(base)
	require.Error(t, wrapped)
	assert.NotContains(t, wrapped.Error(), "AKfycbx123456")
	assert.ErrorIs(t, wrapped, base)
}
