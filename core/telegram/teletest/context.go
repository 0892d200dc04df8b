// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Call is one recorded outgoing call.
type Call struct {
	Kind string // send, reply, edit, edit_caption
	What any
	Opts []any
}

// Text returns the message text or photo caption carried by the call.
func (c Call) Text() string {
	switch v := c.What.(type) {
	case string:
		return v
	case *tele.Photo:
		return v.Caption
	}
	return ""
}

// Markup returns the reply markup passed with the call, if any.
func (c Call) Markup() *tele.ReplyMarkup {
	for _, o := range c.Opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		case *tele.ReplyMarkup:
			return v
		}
	}
	return nil
}

// Context records what a handler sends. Methods not overridden here panic
// through the nil embedded tele.Context.
type Context struct {
	tele.Context

	Upd tele.Update
	// Err, when set, is returned by every outgoing call.
	Err error

	mu        sync.Mutex
	store     map[string]any
	calls     []Call
	responses []*tele.CallbackResponse
}

// NewText builds a context for a private text message from userID.
func NewText(updateID int, userID int64, text string) *Context {
	return &Context{Upd: tele.Update{
		ID: updateID,
		Message: &tele.Message{
			ID:     updateID,
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Text:   text,
		},
	}}
}

// NewCallback builds a context for a button press on prompt with raw callback data.
func NewCallback(updateID int, userID int64, data string, prompt *tele.Message) *Context {
	if prompt == nil {
		prompt = &tele.Message{ID: 1, Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate}}
	}
	return &Context{Upd: tele.Update{
		ID: updateID,
		Callback: &tele.Callback{
			ID:      "cb",
			Sender:  &tele.User{ID: userID},
			Message: prompt,
			Data:    data,
		},
	}}
}

func (c *Context) Update() tele.Update      { return c.Upd }
func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Message() *tele.Message {
	switch {
	case c.Upd.Message != nil:
		return c.Upd.Message
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Message
	}
	return nil
}

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Text() string {
	if m := c.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = v
}

func (c *Context) record(kind string, what any, opts []any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.calls = append(c.calls, Call{Kind: kind, What: what, Opts: opts})
	return nil
}

func (c *Context) Send(what any, opts ...any) error  { return c.record("send", what, opts) }
func (c *Context) Reply(what any, opts ...any) error { return c.record("reply", what, opts) }
func (c *Context) Edit(what any, opts ...any) error  { return c.record("edit", what, opts) }

func (c *Context) EditCaption(caption string, opts ...any) error {
	return c.record("edit_caption", caption, opts)
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp[0])
	return nil
}

// Calls returns a copy of the recorded outgoing calls.
func (c *Context) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Last returns the most recent call; ok is false when nothing was sent.
func (c *Context) Last() (Call, bool) {
	calls := c.Calls()
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Responses returns the callback answers given so far.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responses...)
}
