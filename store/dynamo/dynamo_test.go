package dynamo

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zlnvch/whiteboard/models"
	"github.com/zlnvch/whiteboard/store"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snapshot := models.Snapshot{
		Elements: []json.RawMessage{
			json.RawMessage(`{"id":0,"type":"line","x1":1,"y1":2,"x2":3,"y2":4}`),
		},
		History: [][]json.RawMessage{
			{},
			{json.RawMessage(`{"id":0,"type":"line","x1":1,"y1":2,"x2":3,"y2":4}`)},
		},
	}

	dc, err := snapshotToDynamo("c1", snapshot, 42)
	require.NoError(t, err)
	assert.Equal(t, "CANVAS#c1", dc.PK)
	assert.Equal(t, "CANVAS", dc.SK)
	assert.Equal(t, int64(42), dc.Updated)

	dc.Owner = "u1"
	dc.Shared = []string{"u2"}
	canvas, err := canvasFromDynamo(dc)
	require.NoError(t, err)

	assert.Equal(t, "c1", canvas.Id)
	assert.Equal(t, "u1", canvas.Owner)
	assert.Equal(t, []string{"u2"}, canvas.Shared)
	require.Len(t, canvas.Elements, 1)
	assert.JSONEq(t, string(snapshot.Elements[0]), string(canvas.Elements[0]))
	assert.Len(t, canvas.History, 2)
}

func TestSnapshotToDynamo_NilSlicesBecomeEmptyArrays(t *testing.T) {
	dc, err := snapshotToDynamo("c1", models.Snapshot{}, 1)
	require.NoError(t, err)

	assert.Equal(t, "[]", string(dc.Elements))
	assert.Equal(t, "[]", string(dc.History))
}

func TestCanvasFromDynamo_EmptyBlobs(t *testing.T) {
	canvas, err := canvasFromDynamo(dynamoCanvas{Id: "c1", Owner: "u1"})
	require.NoError(t, err)

	assert.NotNil(t, canvas.Elements)
	assert.Empty(t, canvas.Elements)
	assert.Empty(t, canvas.History)
}

func TestCanvasFromDynamo_CorruptElements(t *testing.T) {
	_, err := canvasFromDynamo(dynamoCanvas{Id: "c1", Elements: []byte("{not json")})
	assert.Error(t, err)
}

func TestBuildSetExpression(t *testing.T) {
	dc, err := snapshotToDynamo("c1", models.Snapshot{}, 7)
	require.NoError(t, err)
	avMap, err := attributevalue.MarshalMap(dc)
	require.NoError(t, err)

	expr, names, values, err := buildSetExpression(avMap, []string{"Updated", "PK", "Elements", "Missing"})
	require.NoError(t, err)

	assert.Equal(t, "SET #Elements = :Elements, #Updated = :Updated", expr)
	assert.Equal(t, map[string]string{"#Elements": "Elements", "#Updated": "Updated"}, names)
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, values[":Updated"])
}

func TestBuildSetExpression_NothingToUpdate(t *testing.T) {
	_, _, _, err := buildSetExpression(map[string]types.AttributeValue{}, []string{"PK", "SK"})
	assert.Error(t, err)
}

func TestUpdateError(t *testing.T) {
	assert.NoError(t, updateError(nil))

	conditional := fmt.Errorf("operation error DynamoDB: UpdateItem: %w", &types.ConditionalCheckFailedException{})
	assert.ErrorIs(t, updateError(conditional), store.ErrItemNotFound)

	other := errors.New("throttled")
	err := updateError(other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, store.ErrItemNotFound)
}
