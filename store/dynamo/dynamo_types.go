package dynamo

import (
	"encoding/json"
	"fmt"

	"github.com/zlnvch/whiteboard/models"
)

const (
	canvasPKPrefix = "CANVAS#"
	canvasSK       = "CANVAS"
)

// Elements and History hold the client payloads as JSON blobs.
type dynamoCanvas struct {
	PK       string   `dynamodbav:"PK"`
	SK       string   `dynamodbav:"SK"`
	Id       string   `dynamodbav:"Id"`
	Name     string   `dynamodbav:"Name"`
	Owner    string   `dynamodbav:"Owner"`
	Shared   []string `dynamodbav:"Shared,stringset,omitempty"`
	Elements []byte   `dynamodbav:"Elements"`
	History  []byte   `dynamodbav:"History"`
	Updated  int64    `dynamodbav:"Updated"`
}

func canvasPK(canvasId string) string {
	return canvasPKPrefix + canvasId
}

// Map domain Snapshot -> Dynamo
func snapshotToDynamo(canvasId string, snapshot models.Snapshot, updated int64) (dynamoCanvas, error) {
	elements, err := json.Marshal(nonNilElements(snapshot.Elements))
	if err != nil {
		return dynamoCanvas{}, fmt.Errorf("marshal elements: %w", err)
	}
	history, err := json.Marshal(nonNilHistory(snapshot.History))
	if err != nil {
		return dynamoCanvas{}, fmt.Errorf("marshal history: %w", err)
	}

	return dynamoCanvas{
		PK:       canvasPK(canvasId),
		SK:       canvasSK,
		Id:       canvasId,
		Elements: elements,
		History:  history,
		Updated:  updated,
	}, nil
}

// Map Dynamo -> domain Canvas
func canvasFromDynamo(dc dynamoCanvas) (models.Canvas, error) {
	canvas := models.Canvas{
		Id:       dc.Id,
		Name:     dc.Name,
		Owner:    dc.Owner,
		Shared:   dc.Shared,
		Elements: []json.RawMessage{},
		History:  [][]json.RawMessage{},
		Updated:  dc.Updated,
	}

	if len(dc.Elements) > 0 {
		if err := json.Unmarshal(dc.Elements, &canvas.Elements); err != nil {
			return models.Canvas{}, fmt.Errorf("unmarshal elements of canvas %s: %w", dc.Id, err)
		}
	}
	if len(dc.History) > 0 {
		if err := json.Unmarshal(dc.History, &canvas.History); err != nil {
			return models.Canvas{}, fmt.Errorf("unmarshal history of canvas %s: %w", dc.Id, err)
		}
	}

	return canvas, nil
}

func nonNilElements(elements []json.RawMessage) []json.RawMessage {
	if elements == nil {
		return []json.RawMessage{}
	}
	return elements
}

func nonNilHistory(history [][]json.RawMessage) [][]json.RawMessage {
	if history == nil {
		return [][]json.RawMessage{}
	}
	return history
}
