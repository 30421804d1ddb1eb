package models

import "encoding/json"

type Identity struct {
	UserId string
}

type Canvas struct {
	Id       string
	Name     string
	Owner    string
	Shared   []string
	Elements []json.RawMessage
	History  [][]json.RawMessage
	Updated  int64
}

// Snapshot is the persisted part of a canvas that clients may overwrite.
type Snapshot struct {
	Elements []json.RawMessage   `json:"elements"`
	History  [][]json.RawMessage `json:"history"`
}

type ElementType string

const (
	ElementLine      ElementType = "line"
	ElementRectangle ElementType = "rectangle"
	ElementCircle    ElementType = "circle"
	ElementArrow     ElementType = "arrow"
	ElementBrush     ElementType = "brush"
	ElementText      ElementType = "text"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Element is the decoded form of a drawable. Elements are relayed and stored
// as the raw bytes the client sent; this struct only exists to inspect them.
type Element struct {
	Id     int         `json:"id"`
	Type   ElementType `json:"type"`
	X1     float64     `json:"x1"`
	Y1     float64     `json:"y1"`
	X2     float64     `json:"x2"`
	Y2     float64     `json:"y2"`
	Points []Point     `json:"points,omitempty"`
	Text   string      `json:"text,omitempty"`
	Stroke string      `json:"stroke,omitempty"`
	Fill   string      `json:"fill,omitempty"`
	Size   float64     `json:"size,omitempty"`
}
