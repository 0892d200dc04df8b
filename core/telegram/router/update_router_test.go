package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/commands"
	"github.com/m3rciful/postbot/core/telegram/teletest"
)

type recorder struct {
	hits []string
	args []string
}

func (r *recorder) handler(name string) tele.HandlerFunc {
	return func(c tele.Context) error {
		r.hits = append(r.hits, name)
		r.args = append(r.args, commands.Args(c))
		return nil
	}
}

func newRouter(t *testing.T, rec *recorder, awaiting map[int64]bool) *Router {
	t.Helper()
	reg := tg.NewRegistry()
	reg.RegisterCommand("/post", commands.Command{Handler: rec.handler("post"), Description: "post"})
	reg.RegisterCommand("/status", commands.Command{Handler: rec.handler("status"), Description: "status", AdminOnly: true, Hidden: true})
	require.NoError(t, reg.RegisterMenu("📤 Пост в ВК", rec.handler("menu_compose")))
	require.NoError(t, reg.RegisterCallback("confirm_post", rec.handler("confirm")))

	return New(Options{
		Registry: reg,
		AdminID:  1,
		ConsumeAwaitingText: func(userID int64) bool {
			if awaiting[userID] {
				delete(awaiting, userID)
				return true
			}
			return false
		},
		OnPendingText: rec.handler("pending_text"),
	})
}

func TestHandleTextClassification(t *testing.T) {
	rec := &recorder{}
	awaiting := map[int64]bool{7: true}
	r := newRouter(t, rec, awaiting)

	require.NoError(t, r.HandleText(teletest.NewText(1, 7, "/post@postbot Buy our new laptop")))
	require.NoError(t, r.HandleText(teletest.NewText(2, 7, "📤 Пост в ВК")))
	require.NoError(t, r.HandleText(teletest.NewText(3, 7, "/unknown text")))
	require.True(t, awaiting[7], "routing a command leaves the awaiting flag to the handler")

	require.NoError(t, r.HandleText(teletest.NewText(4, 7, "Hello world")))
	require.NoError(t, r.HandleText(teletest.NewText(5, 7, "Hello again")))

	require.Equal(t, []string{"post", "menu_compose", "pending_text"}, rec.hits)
	require.Equal(t, "Buy our new laptop", rec.args[0])
	require.False(t, awaiting[7])
}

func TestMenuCaptionIsExactMatch(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, rec, map[int64]bool{})

	require.NoError(t, r.HandleText(teletest.NewText(1, 7, "📤 Пост в ВК ")))
	require.NoError(t, r.HandleText(teletest.NewText(2, 7, "Пост в ВК")))
	require.Empty(t, rec.hits)
}

func TestAdminOnlyCommand(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, rec, map[int64]bool{})

	require.NoError(t, r.HandleText(teletest.NewText(1, 7, "/status")))
	require.Empty(t, rec.hits)
	require.NoError(t, r.HandleText(teletest.NewText(2, 1, "/status")))
	require.Equal(t, []string{"status"}, rec.hits)
}

func TestHandleCallback(t *testing.T) {
	rec := &recorder{}
	r := newRouter(t, rec, map[int64]bool{})

	require.NoError(t, r.HandleCallback(teletest.NewCallback(1, 7, "\fconfirm_post", nil)))
	require.Equal(t, []string{"confirm"}, rec.hits)

	c := teletest.NewCallback(2, 7, "\fdelete_everything|1", nil)
	require.NoError(t, r.HandleCallback(c))
	require.Len(t, rec.hits, 1)
	resp := c.Responses()
	require.Len(t, resp, 1)
	require.Equal(t, tg.UnsupportedAction, resp[0].Text)
}

func TestHandlerErrorIsReturned(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterCallback("cancel_post", func(tele.Context) error { return boom }))
	r := New(Options{Registry: reg})

	err := r.HandleCallback(teletest.NewCallback(1, 7, "cancel_post", nil))
	require.ErrorIs(t, err, boom)
}

func TestDeriveErrorCode(t *testing.T) {
	require.Equal(t, "", deriveErrorCode(nil))
	require.Equal(t, "PANIC", deriveErrorCode(errors.Join(&panicLike{})))
	require.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
	require.Equal(t, "confirm_post", normalizeHandlerName(" /Confirm_Post "))
	require.Equal(t, "unknown", normalizeHandlerName(""))
}

type panicLike struct{}

func (*panicLike) Error() string { return "panic" }
func (*panicLike) Code() string  { return "panic" }
