package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sakif/og-studio/internal/apperror"
	"github.com/sakif/og-studio/internal/editor"
	"github.com/sakif/og-studio/internal/model"
	"github.com/sakif/og-studio/internal/service"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Rate limiting: 20 messages per second with a burst of 30
	messagesPerSecond = 20
	burstLimit        = 30

	sendBuffer = 32

	// Autosave: each attempt gets saveTimeout; retries stop after
	// saveRetryBudget.
	saveTimeout       = 5 * time.Second
	saveRetryInterval = 50 * time.Millisecond
	saveRetryBudget   = 2 * time.Second
)

// MyImagesPath is where a request for an unknown image is sent.
const MyImagesPath = "/my-images"

// SaveFailedNotice is shown when autosave could not persist a change.
const SaveFailedNotice = "Your last change could not be saved."

// Inbound message types.
const (
	msgKey    = "key"
	msgClick  = "click"
	msgSelect = "select"
	msgUpdate = "update"
)

// Outbound message types.
const (
	msgState  = "state"
	msgNotice = "notice"
	msgError  = "error"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type selectData struct {
	ID string `json:"id"`
}

type noticeData struct {
	Message string `json:"message"`
}

// StateData is the editor snapshot pushed after every handled event.
type StateData struct {
	ImageID      string          `json:"imageId"`
	Elements     []model.Element `json:"elements"`
	SelectedID   string          `json:"selectedId,omitempty"`
	CanUndo      bool            `json:"canUndo"`
	CanRedo      bool            `json:"canRedo"`
	HasClipboard bool            `json:"hasClipboard"`
}

// EditorConfig controls the editor WebSocket.
type EditorConfig struct {
	// AllowedOrigin is the only Origin allowed to connect. Empty falls back
	// to gorilla's same-origin check.
	AllowedOrigin string
	HistoryLimit  int
}

// EditorHandler serves GET /api/images/{id}/editor. Each connection gets
// its own Editor mounted on the image; closing the socket unmounts it.
type EditorHandler struct {
	images       *service.ImageService
	upgrader     websocket.Upgrader
	historyLimit int
	shutdownCtx  context.Context
	logger       *slog.Logger
}

// NewEditorHandler creates an EditorHandler. Open connections are closed
// when shutdownCtx is cancelled.
func NewEditorHandler(shutdownCtx context.Context, images *service.ImageService, cfg EditorConfig, logger *slog.Logger) *EditorHandler {
	upgrader := websocket.Upgrader{}
	if cfg.AllowedOrigin != "" {
		allowed := cfg.AllowedOrigin
		upgrader.CheckOrigin = func(r *http.Request) bool {
			return r.Header.Get("Origin") == allowed
		}
	}

	return &EditorHandler{
		images:       images,
		upgrader:     upgrader,
		historyLimit: cfg.HistoryLimit,
		shutdownCtx:  shutdownCtx,
		logger:       logger,
	}
}

// HandleEditor mounts the image and upgrades to a WebSocket.
//
// HTTP: GET /api/images/{id}/editor
// Auth: Required
//
// The image is mounted before the upgrade so an unknown image can still be
// answered with a plain redirect to /my-images.
func (h *EditorHandler) HandleEditor(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	imageID := chi.URLParam(r, "id")

	c := &editorConn{
		userID: userID,
		images: h.images,
		send:   make(chan outboundMessage, sendBuffer),
		logger: h.logger.With(slog.String("userID", userID), slog.String("imageID", imageID)),
	}
	c.editor = editor.New(
		editor.NewStore(h.images.Loader(userID), h.historyLimit),
		editor.WithNotifier(c.notice),
		editor.WithLogger(c.logger),
	)

	sub, err := c.editor.Mount(r.Context(), imageID)
	if err != nil {
		if errors.Is(err, editor.ErrImageNotFound) {
			http.Redirect(w, r, MyImagesPath, http.StatusFound)
			return
		}
		c.logger.Error("editor mount failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	c.sub = sub
	defer c.editor.Unmount()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		c.logger.Warn("editor upgrade failed", slog.String("error", err.Error()))
		return
	}
	c.conn = conn
	c.limiter = rate.NewLimiter(rate.Limit(messagesPerSecond), burstLimit)

	c.logger.Info("editor connected", slog.Bool("splash", sub == nil))

	go c.writePump(h.shutdownCtx)
	c.pushState()
	c.readPump(r.Context())

	c.logger.Info("editor disconnected")
}

// editorConn binds one WebSocket to one Editor. readPump is the only
// goroutine that touches the editor or writes to send; writePump is the
// only one that writes to conn.
type editorConn struct {
	conn    *websocket.Conn
	editor  *editor.Editor
	sub     *editor.Subscription // nil on the splash screen
	userID  string
	images  *service.ImageService
	limiter *rate.Limiter
	send    chan outboundMessage
	closed  bool
	logger  *slog.Logger
}

func (c *editorConn) readPump(ctx context.Context) {
	defer func() {
		if c.sub != nil {
			c.sub.Release()
		}
		c.closed = true
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("editor connection closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}

		if !c.limiter.Allow() {
			c.logger.Warn("closing editor connection: message rate limit exceeded")
			return
		}

		c.handleMessage(ctx, data)
		if c.closed {
			return
		}
	}
}

func (c *editorConn) writePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn("editor send failed", slog.String("error", err.Error()))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-shutdownCtx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			)
			return
		}
	}
}

// handleMessage applies one inbound message. Events on the splash screen
// are dropped.
func (c *editorConn) handleMessage(ctx context.Context, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message: " + err.Error())
		return
	}
	if c.sub == nil {
		return
	}

	switch msg.Type {
	case msgKey:
		var ev editor.KeyEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			c.sendError("invalid key event: " + err.Error())
			return
		}
		result := c.sub.HandleKey(ev)
		if !result.Handled {
			return
		}
		if result.Changed {
			c.save(ctx)
		}
		c.pushState()

	case msgClick:
		var target editor.ClickTarget
		if err := json.Unmarshal(msg.Data, &target); err != nil {
			c.sendError("invalid click: " + err.Error())
			return
		}
		if c.sub.HandleClick(target) {
			c.pushState()
		}

	case msgSelect:
		var sel selectData
		if err := json.Unmarshal(msg.Data, &sel); err != nil {
			c.sendError("invalid select: " + err.Error())
			return
		}
		if c.sub.Select(sel.ID) {
			c.pushState()
		}

	case msgUpdate:
		var el model.Element
		if err := json.Unmarshal(msg.Data, &el); err != nil {
			c.sendError("invalid element: " + err.Error())
			return
		}
		if !el.Type.Valid() {
			c.sendError("unknown element type " + string(el.Type))
			return
		}
		if c.sub.UpdateElement(el) {
			c.save(ctx)
			c.pushState()
		}

	default:
		c.sendError("unknown message type " + msg.Type)
	}
}

// save persists the current element list. Storage errors are retried
// with exponential backoff; apperror results (not found, validation) are
// final.
func (c *editorConn) save(ctx context.Context) {
	elements := c.editor.Store().Elements()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = saveRetryInterval
	bo.MaxElapsedTime = saveRetryBudget

	err := backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(ctx, saveTimeout)
		defer cancel()

		err := c.images.SaveElements(ctx, c.userID, c.editor.ImageID(), elements)
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		c.logger.Warn("autosave failed, retrying",
			slog.String("error", err.Error()),
			slog.Duration("wait", wait),
		)
	})
	if err != nil {
		c.logger.Error("autosave failed", slog.String("error", err.Error()))
		c.notice(SaveFailedNotice)
	}
}

func (c *editorConn) pushState() {
	store := c.editor.Store()
	c.queue(outboundMessage{Type: msgState, Data: StateData{
		ImageID:      c.editor.ImageID(),
		Elements:     store.Elements(),
		SelectedID:   store.Selected(),
		CanUndo:      store.CanUndo(),
		CanRedo:      store.CanRedo(),
		HasClipboard: c.editor.HasClipboard(),
	}})
}

func (c *editorConn) notice(message string) {
	c.queue(outboundMessage{Type: msgNotice, Data: noticeData{Message: message}})
}

func (c *editorConn) sendError(message string) {
	c.queue(outboundMessage{Type: msgError, Data: noticeData{Message: message}})
}

// queue hands a message to writePump. A client that stops reading is
// disconnected rather than allowed to block the editor.
func (c *editorConn) queue(msg outboundMessage) {
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("closing editor connection: send buffer full")
		c.closed = true
	}
}
