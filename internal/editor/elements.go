package editor

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/og-studio/internal/model"
)

// Canvas size of an Open Graph image.
const (
	CanvasWidth  = 1200
	CanvasHeight = 630
)

// NewElementID returns a fresh, unique element ID.
func NewElementID() string {
	return xid.New().String()
}

// DefaultElement builds a new element of the given type with the settings a
// freshly inserted element starts with.
func DefaultElement(t model.ElementType) (model.Element, error) {
	el := model.Element{
		ID:      NewElementID(),
		Type:    t,
		X:       0,
		Y:       0,
		Visible: true,
		Opacity: 100,
	}

	switch t {
	case model.ElementText:
		el.Name = "Text"
		el.Width = 100
		el.Height = 50
		el.Content = "Text"
		setDefaultFont(&el)
	case model.ElementDynamicText:
		el.Name = "Dynamic text"
		el.Width = 312
		el.Height = 50
		el.Content = "Dynamic text"
		el.Tag = "title"
		setDefaultFont(&el)
	case model.ElementBox:
		el.Name = "Box"
		el.Width = 200
		el.Height = 200
		el.BackgroundColor = "#000000"
	case model.ElementRoundedBox:
		el.Name = "Rounded box"
		el.Width = 200
		el.Height = 200
		el.BackgroundColor = "#000000"
		el.Radius = 10
	case model.ElementImage:
		el.Name = "Image"
		el.Width = 200
		el.Height = 200
		el.Src = "https://source.unsplash.com/random"
	default:
		return model.Element{}, fmt.Errorf("editor: unknown element type %q", t)
	}

	return el, nil
}

func setDefaultFont(el *model.Element) {
	el.FontFamily = "Inter"
	el.FontWeight = 400
	el.FontSize = 50
	el.LineHeight = 1
	el.LetterSpacing = 0
	el.Color = "#000000"
	el.Align = "left"
}
