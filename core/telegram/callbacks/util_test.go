package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseData(t *testing.T) {
	cases := []struct {
		in, unique, payload string
	}{
		{"\fconfirm_post", "confirm_post", ""},
		{"\fconfirm_post|", "confirm_post", ""},
		{"\fcancel_post|abc|def", "cancel_post", "abc|def"},
		{"confirm_post", "confirm_post", ""},
		{"\f", "", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		u, p := ParseData(tc.in)
		require.Equal(t, tc.unique, u, tc.in)
		require.Equal(t, tc.payload, p, tc.in)
	}
}

func TestParsePrefersUnique(t *testing.T) {
	u, p := Parse(&tele.Callback{Unique: "confirm_post", Data: "42"})
	require.Equal(t, "confirm_post", u)
	require.Equal(t, "42", p)

	u, p = Parse(nil)
	require.Empty(t, u)
	require.Empty(t, p)
}
