package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad request"), false},
		{"dial", dial, true},
		{"timeout", timeoutErr{}, true},
		{"wrapped url dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: dial}, true},
		{"canceled", &url.Error{Op: "Post", URL: "x", Err: context.Canceled}, false},
		{"read reset", &net.OpError{Op: "read", Err: errors.New("reset")}, false},
	}
	for _, tc := range cases {
		if got := ShouldRetry(tc.err); got != tc.want {
			t.Fatalf("%s: ShouldRetry = %v, want %v", tc.name, got, tc.want)
		}
	}
}
