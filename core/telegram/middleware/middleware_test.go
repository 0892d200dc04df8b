package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/telegram/teletest"
)

func TestRecoverMiddlewareReturnsPanicError(t *testing.T) {
	c := teletest.NewText(1, 10, "boom")
	err := RecoverMiddleware(func(tele.Context) error { panic("kaboom") })(c)

	var perr *PanicError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, "kaboom", perr.Value)
	require.Equal(t, "PANIC", perr.Code())
}

func TestRecoverMiddlewarePassesErrors(t *testing.T) {
	want := errors.New("plain")
	err := RecoverMiddleware(func(tele.Context) error { return want })(teletest.NewText(1, 10, "x"))
	require.ErrorIs(t, err, want)
}

func TestMessageMetricsCountsSendsAndEdits(t *testing.T) {
	c := teletest.NewText(1, 10, "hi")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		require.NoError(t, c.Send("one"))
		require.NoError(t, c.Edit("two", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}}))
		return c.EditCaption("three")
	})
	require.NoError(t, h(c))

	msgs, kb := GetCounters(c)
	require.Equal(t, 3, msgs)
	require.True(t, kb)
	require.Len(t, c.Calls(), 3)
}

func TestMessageMetricsSkipsFailedSends(t *testing.T) {
	c := teletest.NewText(1, 10, "hi")
	c.Err = errors.New("blocked by user")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		return c.Send("one", &tele.ReplyMarkup{})
	})
	require.Error(t, h(c))
	msgs, kb := GetCounters(c)
	require.Zero(t, msgs)
	require.False(t, kb)
}

func TestRateLimitMiddleware(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	limitedCalls := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{config.UpdateCallback: {}},
		OnLimited: func(tele.Context) error { limitedCalls++; return nil },
		now:       func() time.Time { return clock },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(teletest.NewText(1, 10, "a")))
	require.NoError(t, h(teletest.NewText(2, 10, "b")))
	require.NoError(t, h(teletest.NewText(3, 11, "other user")))
	require.NoError(t, h(teletest.NewCallback(4, 10, "\fconfirm_post", nil)))
	clock = clock.Add(2 * time.Second)
	require.NoError(t, h(teletest.NewText(5, 10, "later")))

	require.Equal(t, 4, handled)
	require.Equal(t, 1, limitedCalls)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	rejected := 0
	mw := AdminOnlyMiddleware(AdminOptions{
		AdminID:  99,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(teletest.NewText(1, 99, "/status")))
	require.NoError(t, h(teletest.NewText(2, 5, "/status")))
	require.Equal(t, 1, handled)
	require.Equal(t, 1, rejected)

	noAdmin := AdminOnlyMiddleware(AdminOptions{})(func(tele.Context) error { handled++; return nil })
	require.NoError(t, noAdmin(teletest.NewText(3, 0, "/status")))
	require.Equal(t, 1, handled)
}

func TestLoggerMiddlewareStoresRID(t *testing.T) {
	c := teletest.NewText(7, 10, "hello")
	require.NoError(t, LoggerMiddleware(func(c tele.Context) error { return nil })(c))
	require.Equal(t, "7:10:10", c.Get("rid"))
}
