// Package editor is the command layer of the image editor.
//
// An Editor owns one Store (the element list with its undo history) and a
// clipboard. Keyboard and pointer events reach it only through a
// Subscription, which Mount hands out and Release revokes, so an editor that
// is not mounted never reacts to input.
//
// The clipboard holds an element ID, not a copy. Paste looks that ID up in
// the list as it is at paste time: an element edited after copying is pasted
// with its edits, and one deleted after copying is not pasted at all.
package editor

import (
	"context"
	"errors"
	"log/slog"
)

// SplashImageID is the placeholder image shown before the user picks one.
// It is viewable but every shortcut is off.
const SplashImageID = "splash"

// ErrImageNotFound is returned by Mount for an image the loader doesn't know.
var ErrImageNotFound = errors.New("editor: image not found")

// Editor binds input events to mutations of its Store.
//
// An Editor serves one client connection and is not safe for concurrent
// use; the transport feeds it events one at a time.
type Editor struct {
	store     *Store
	imageID   string
	clipboard string
	sub       *Subscription
	notify    func(string)
	logger    *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithNotifier registers a callback for user-visible notices such as the
// save-intent message.
func WithNotifier(fn func(message string)) Option {
	return func(e *Editor) {
		e.notify = fn
	}
}

// WithLogger sets the logger used for mount events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// New creates an unmounted Editor over store.
func New(store *Store, opts ...Option) *Editor {
	e := &Editor{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mount loads imageID into the store and returns the subscription through
// which events reach the editor.
//
// Any previous subscription is released first, so at most one is live.
//   - unknown image: ErrImageNotFound, no subscription
//   - SplashImageID: loaded, but nil subscription and nil error
func (e *Editor) Mount(ctx context.Context, imageID string) (*Subscription, error) {
	e.Unmount()

	ok, err := e.store.Load(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		e.logger.Debug("editor: image not found", "image_id", imageID)
		return nil, ErrImageNotFound
	}

	e.imageID = imageID

	if imageID == SplashImageID {
		return nil, nil
	}

	e.sub = &Subscription{editor: e}
	e.logger.Debug("editor: mounted", "image_id", imageID, "elements", len(e.store.elements))
	return e.sub, nil
}

// Unmount releases the live subscription, if any.
func (e *Editor) Unmount() {
	if e.sub != nil {
		e.sub.Release()
		e.sub = nil
	}
}

// ImageID returns the ID of the mounted image.
func (e *Editor) ImageID() string {
	return e.imageID
}

// Store returns the editor's store.
func (e *Editor) Store() *Store {
	return e.store
}

// HasClipboard reports whether something has been copied.
func (e *Editor) HasClipboard() bool {
	return e.clipboard != ""
}

func (e *Editor) emit(message string) {
	if e.notify != nil {
		e.notify(message)
	}
}
