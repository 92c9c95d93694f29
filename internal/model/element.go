package model

// ElementType is the type tag of a visual element.
type ElementType string

const (
	ElementText        ElementType = "text"
	ElementBox         ElementType = "box"
	ElementRoundedBox  ElementType = "rounded-box"
	ElementImage       ElementType = "image"
	ElementDynamicText ElementType = "dynamic-text"
)

// Valid reports whether t is one of the known element types.
func (t ElementType) Valid() bool {
	switch t {
	case ElementText, ElementBox, ElementRoundedBox, ElementImage, ElementDynamicText:
		return true
	}
	return false
}

// Element is one visual object positioned on the canvas.
//
// Every field is a plain value, so copying the struct copies the element.
// The editor relies on that when it snapshots history and pastes copies.
// Type-specific fields are left at their zero value (and omitted from JSON)
// for types that don't use them.
type Element struct {
	ID      string      `json:"id"`
	Type    ElementType `json:"type"`
	Name    string      `json:"name"`
	X       int         `json:"x"`
	Y       int         `json:"y"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
	Visible bool        `json:"visible"`
	Rotate  int         `json:"rotate"`
	Opacity int         `json:"opacity"` // 0-100

	// text and dynamic-text
	Content       string  `json:"content,omitempty"`
	FontFamily    string  `json:"fontFamily,omitempty"`
	FontWeight    int     `json:"fontWeight,omitempty"`
	FontSize      int     `json:"fontSize,omitempty"`
	LineHeight    float64 `json:"lineHeight,omitempty"`
	LetterSpacing int     `json:"letterSpacing,omitempty"`
	Color         string  `json:"color,omitempty"`
	Align         string  `json:"align,omitempty"`

	// dynamic-text: placeholder key substituted at render time
	Tag string `json:"tag,omitempty"`

	// box and rounded-box
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Radius          int    `json:"radius,omitempty"`

	// image
	Src string `json:"src,omitempty"`
}
