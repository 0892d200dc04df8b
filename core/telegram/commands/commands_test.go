package commands

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in, name, args string
		ok             bool
	}{
		{"/start", "/start", "", true},
		{"/post Hello world", "/post", "Hello world", true},
		{"/Post@postbot   spaced  ", "/post", "spaced", true},
		{"/post\nline one\nline two", "/post", "line one\nline two", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
		{"", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := Parse(tc.in)
		require.Equal(t, tc.ok, ok, tc.in)
		require.Equal(t, tc.name, name, tc.in)
		require.Equal(t, tc.args, args, tc.in)
	}
}
