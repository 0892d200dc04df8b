package telegram

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/telegram/middleware"
	"github.com/m3rciful/postbot/core/telegram/teletest"
)

func newTestReceiver(t *testing.T, secret string, text, callback tele.HandlerFunc) *WebhookReceiver {
	t.Helper()
	rcv, err := NewWebhookReceiver(WebhookOptions{
		Path:        "/webhook",
		SecretToken: secret,
		NewContext:  func(u tele.Update) tele.Context { return &teletest.Context{Upd: u} },
		Routes: []Route{
			{Endpoint: tele.OnText, Handler: text},
			{Endpoint: tele.OnCallback, Handler: callback},
		},
		Middlewares: DefaultMiddlewares(nil, nil),
	})
	require.NoError(t, err)
	return rcv
}

func post(t *testing.T, rcv *WebhookReceiver, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	rcv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestWebhookRoutesTextAndCallbacks(t *testing.T) {
	var gotText, gotData string
	rcv := newTestReceiver(t, "",
		func(c tele.Context) error { gotText = c.Text(); return nil },
		func(c tele.Context) error { gotData = c.Callback().Data; return nil },
	)

	rec := post(t, rcv, `{"update_id":1,"message":{"message_id":5,"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"hello"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Equal(t, "hello", gotText)

	rec = post(t, rcv, `{"update_id":2,"callback_query":{"id":"q","from":{"id":7},"data":"\fconfirm_post"}}`, nil)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Equal(t, "\fconfirm_post", gotData)
}

func TestWebhookReportsHandlerFailure(t *testing.T) {
	rcv := newTestReceiver(t, "",
		func(tele.Context) error { return errors.New("vk is down") },
		func(tele.Context) error { panic("boom") },
	)

	rec := post(t, rcv, `{"update_id":3,"message":{"message_id":1,"from":{"id":7},"chat":{"id":7,"type":"private"},"text":"x"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"error":"vk is down"}`, rec.Body.String())

	rec = post(t, rcv, `{"update_id":4,"callback_query":{"id":"q","from":{"id":7},"data":"x"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"error":"handler panic: boom"`)
}

func TestWebhookMalformedAndUnroutable(t *testing.T) {
	rcv := newTestReceiver(t, "", func(tele.Context) error { return nil }, func(tele.Context) error { return nil })

	rec := post(t, rcv, `{"update_id":`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"error":"malformed update`)

	rec = post(t, rcv, `{"update_id":9,"edited_message":{"message_id":1,"text":"late"}}`, nil)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestWebhookSecretToken(t *testing.T) {
	rcv := newTestReceiver(t, "s3cret", func(tele.Context) error { return nil }, nil)
	body := `{"update_id":1,"message":{"message_id":1,"from":{"id":1},"chat":{"id":1,"type":"private"},"text":"hi"}}`

	rec := post(t, rcv, body, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(t, rcv, body, http.Header{SecretHeader: {"s3cret"}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return Middleware{Name: name, Use: func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				order = append(order, name)
				return next(c)
			}
		}}
	}
	h := Chain(func(tele.Context) error { order = append(order, "handler"); return nil },
		[]Middleware{mk("a"), mk("b"), {Name: "recover", Use: middleware.RecoverMiddleware}})
	require.NoError(t, h(teletest.NewText(1, 1, "x")))
	require.Equal(t, []string{"a", "b", "handler"}, order)
}
