package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sakif/og-studio/internal/editor"
	"github.com/sakif/og-studio/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// dialEditor opens the editor socket for imageID as the cookie's owner.
func dialEditor(t *testing.T, srv *httptest.Server, imageID string, cookie *http.Cookie, header ...http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	h := http.Header{}
	if len(header) > 0 {
		h = header[0]
	}
	if cookie != nil {
		h.Set("Cookie", cookie.Name+"="+cookie.Value)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/images/" + imageID + "/editor"
	conn, resp, err := websocket.DefaultDialer.Dial(url, h)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readState(t *testing.T, conn *websocket.Conn) StateData {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, msgState, msg.Type)
	var state StateData
	require.NoError(t, json.Unmarshal(msg.Data, &state))
	return state
}

func send(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wsMessage{Type: msgType, Data: raw}))
}

func box(id string, x, y int) model.Element {
	return model.Element{ID: id, Type: model.ElementBox, Name: id, X: x, Y: y, Width: 200, Height: 200, Visible: true, Opacity: 100}
}

// editorFixture is a running server, a logged-in user and one image.
type editorFixture struct {
	env    *testEnv
	srv    *httptest.Server
	user   *model.User
	cookie *http.Cookie
	image  *model.Image
}

func newEditorFixture(t *testing.T, elements ...model.Element) *editorFixture {
	t.Helper()
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	user, cookie := env.login(t, 1, "alice")
	img, err := env.images.Create(context.Background(), user.ID, "Card", elements)
	require.NoError(t, err)

	return &editorFixture{env: env, srv: srv, user: user, cookie: cookie, image: img}
}

func (f *editorFixture) connect(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := dialEditor(t, f.srv, f.image.ID, f.cookie)
	require.NoError(t, err)
	return conn
}

func (f *editorFixture) stored(t *testing.T) []model.Element {
	t.Helper()
	img, err := f.env.images.Get(context.Background(), f.user.ID, f.image.ID)
	require.NoError(t, err)
	return img.Elements
}

func TestEditor_InitialState(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0), box("b", 50, 50))
	conn := f.connect(t)

	state := readState(t, conn)

	assert.Equal(t, f.image.ID, state.ImageID)
	require.Len(t, state.Elements, 2)
	assert.Empty(t, state.SelectedID)
	assert.False(t, state.CanUndo)
	assert.False(t, state.CanRedo)
}

func TestEditor_SelectNudgeAutosaves(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	send(t, conn, msgSelect, selectData{ID: "a"})
	assert.Equal(t, "a", readState(t, conn).SelectedID)

	send(t, conn, msgKey, editor.KeyEvent{Key: "ArrowRight", Shift: true, Target: editor.TargetBody})
	state := readState(t, conn)
	assert.Equal(t, 10, state.Elements[0].X)
	assert.True(t, state.CanUndo)

	assert.Equal(t, 10, f.stored(t)[0].X, "the change is persisted before the state is pushed")

	send(t, conn, msgKey, editor.KeyEvent{Key: "z", Ctrl: true, Target: editor.TargetBody})
	assert.Equal(t, 0, readState(t, conn).Elements[0].X)
	assert.Equal(t, 0, f.stored(t)[0].X)
}

func TestEditor_ClickAndUpdate(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	send(t, conn, msgClick, editor.ClickTarget{Kind: editor.ClickElement, ElementID: "a"})
	assert.Equal(t, "a", readState(t, conn).SelectedID)

	edited := box("a", 300, 40)
	edited.BackgroundColor = "#ff0000"
	send(t, conn, msgUpdate, edited)
	state := readState(t, conn)
	assert.Equal(t, "#ff0000", state.Elements[0].BackgroundColor)
	assert.Equal(t, "#ff0000", f.stored(t)[0].BackgroundColor)

	send(t, conn, msgClick, editor.ClickTarget{Kind: editor.ClickOutside})
	assert.Empty(t, readState(t, conn).SelectedID)
}

func TestEditor_SaveShortcutSendsNotice(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	send(t, conn, msgKey, editor.KeyEvent{Key: "s", Meta: true, Target: editor.TargetBody})

	msg := readMessage(t, conn)
	require.Equal(t, msgNotice, msg.Type)
	var notice noticeData
	require.NoError(t, json.Unmarshal(msg.Data, &notice))
	assert.Equal(t, editor.SaveNotice, notice.Message)
}

func TestEditor_CopyPaste(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	send(t, conn, msgSelect, selectData{ID: "a"})
	readState(t, conn)
	send(t, conn, msgKey, editor.KeyEvent{Key: "c", Ctrl: true, Target: editor.TargetBody})
	assert.True(t, readState(t, conn).HasClipboard)

	send(t, conn, msgKey, editor.KeyEvent{Key: "v", Ctrl: true, Target: editor.TargetBody})
	state := readState(t, conn)

	require.Len(t, state.Elements, 2)
	assert.Equal(t, 10, state.Elements[1].X)
	assert.Equal(t, 10, state.Elements[1].Y)
	assert.NotEqual(t, "a", state.Elements[1].ID)
	assert.Len(t, f.stored(t), 2)
}

func TestEditor_UnhandledKeySendsNothing(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	// typing into an input never reaches the shortcuts
	send(t, conn, msgKey, editor.KeyEvent{Key: "Backspace", Target: "input"})
	send(t, conn, "bogus", nil)

	assert.Equal(t, msgError, readMessage(t, conn).Type, "the key produced no message of its own")
	assert.Len(t, f.stored(t), 1)
}

func TestEditor_UnknownImageRedirects(t *testing.T) {
	f := newEditorFixture(t)

	_, resp, err := dialEditor(t, f.srv, "no-such-image", f.cookie)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, MyImagesPath, resp.Header.Get("Location"))
}

func TestEditor_ForeignImageRedirects(t *testing.T) {
	f := newEditorFixture(t)
	_, mallory := f.env.login(t, 2, "mallory")

	_, resp, err := dialEditor(t, f.srv, f.image.ID, mallory)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestEditor_RequiresAuth(t *testing.T) {
	f := newEditorFixture(t)

	_, resp, err := dialEditor(t, f.srv, f.image.ID, nil)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEditor_SplashIgnoresEvents(t *testing.T) {
	f := newEditorFixture(t)
	conn, _, err := dialEditor(t, f.srv, editor.SplashImageID, f.cookie)
	require.NoError(t, err)

	state := readState(t, conn)
	assert.Equal(t, editor.SplashImageID, state.ImageID)
	assert.NotEmpty(t, state.Elements)

	send(t, conn, msgKey, editor.KeyEvent{Key: "b", Target: editor.TargetBody})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	assert.Equal(t, msgError, readMessage(t, conn).Type, "the insert shortcut was ignored")
}

func TestEditor_RateLimitClosesConnection(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	for i := 0; i < burstLimit+10; i++ {
		// writes may start failing once the server hangs up
		_ = conn.WriteJSON(wsMessage{Type: msgKey, Data: json.RawMessage(`{"key":"x","target":"input"}`)})
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var netErr net.Error
	assert.False(t, errors.As(err, &netErr) && netErr.Timeout(), "server closed the connection: %v", err)
}

func TestEditor_ShutdownClosesConnection(t *testing.T) {
	f := newEditorFixture(t, box("a", 0, 0))
	conn := f.connect(t)
	readState(t, conn)

	f.env.cancelEditors()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestEditor_AllowedOrigin(t *testing.T) {
	env := newTestEnv(t, EditorConfig{AllowedOrigin: "https://og.example", HistoryLimit: 10})
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)
	user, cookie := env.login(t, 1, "alice")
	img, err := env.images.Create(context.Background(), user.ID, "Card", nil)
	require.NoError(t, err)

	_, resp, err := dialEditor(t, srv, img.ID, cookie, http.Header{"Origin": {"https://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dialEditor(t, srv, img.ID, cookie, http.Header{"Origin": {"https://og.example"}})
	require.NoError(t, err)
	readState(t, conn)
}
