package service

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/zlnvch/whiteboard/models"
)

var canvasIdRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

const (
	maxBrushPoints    = 5000
	maxTextLength     = 2000
	maxStyleLength    = 64
	maxElementSize    = 500
	maxCanvasElements = 10000
	maxHistoryEntries = 500
)

func ValidateCanvasId(canvasId string) error {
	if !canvasIdRegex.MatchString(canvasId) {
		return fmt.Errorf("%w: invalid canvas id", ErrMalformedEvent)
	}
	return nil
}

// ValidateElement decodes raw into an Element and checks it is a known,
// reasonably sized shape. The raw bytes are what gets relayed, not the struct.
func ValidateElement(raw json.RawMessage) (models.Element, error) {
	if len(raw) == 0 {
		return models.Element{}, fmt.Errorf("%w: missing element", ErrMalformedEvent)
	}

	var element models.Element
	if err := json.Unmarshal(raw, &element); err != nil {
		return models.Element{}, fmt.Errorf("%w: invalid element format", ErrMalformedEvent)
	}

	switch element.Type {
	case models.ElementLine, models.ElementRectangle, models.ElementCircle, models.ElementArrow:
	case models.ElementBrush:
		if len(element.Points) > maxBrushPoints {
			return models.Element{}, fmt.Errorf("%w: brush stroke too long", ErrMalformedEvent)
		}
	case models.ElementText:
		if utf8.RuneCountInString(element.Text) > maxTextLength {
			return models.Element{}, fmt.Errorf("%w: text too long", ErrMalformedEvent)
		}
	default:
		return models.Element{}, fmt.Errorf("%w: unknown element type %q", ErrMalformedEvent, element.Type)
	}

	if element.Id < 0 {
		return models.Element{}, fmt.Errorf("%w: negative element id", ErrMalformedEvent)
	}
	if len(element.Stroke) > maxStyleLength || len(element.Fill) > maxStyleLength {
		return models.Element{}, fmt.Errorf("%w: invalid style", ErrMalformedEvent)
	}
	if element.Size < 0 || element.Size > maxElementSize || math.IsNaN(element.Size) {
		return models.Element{}, fmt.Errorf("%w: invalid size", ErrMalformedEvent)
	}

	return element, nil
}

func ValidateSnapshot(snapshot models.Snapshot) error {
	if len(snapshot.Elements) > maxCanvasElements {
		return fmt.Errorf("%w: too many elements", ErrMalformedEvent)
	}
	if len(snapshot.History) > maxHistoryEntries {
		return fmt.Errorf("%w: history too long", ErrMalformedEvent)
	}

	for _, raw := range snapshot.Elements {
		if _, err := ValidateElement(raw); err != nil {
			return err
		}
	}
	for _, entry := range snapshot.History {
		if len(entry) > maxCanvasElements {
			return fmt.Errorf("%w: too many elements in history entry", ErrMalformedEvent)
		}
	}

	return nil
}
