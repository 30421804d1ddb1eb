package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/zlnvch/whiteboard/models"
)

type DynamoCanvasStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoCanvasStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoCanvasStore, error) {
	client, err := newDynamoDBClient(ctx, devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoCanvasStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoCanvasStore) GetCanvas(ctx context.Context, canvasId string) (models.Canvas, error) {
	dc, err := getItem[dynamoCanvas](dynamoStore, ctx, canvasPK(canvasId), canvasSK, false)
	if err != nil {
		return models.Canvas{}, err
	}

	return canvasFromDynamo(dc)
}

func (dynamoStore *DynamoCanvasStore) SaveSnapshot(ctx context.Context, canvasId string, snapshot models.Snapshot) error {
	dc, err := snapshotToDynamo(canvasId, snapshot, time.Now().UnixMilli())
	if err != nil {
		return err
	}

	return updateItem(dynamoStore, ctx, dc, []string{"Elements", "History", "Updated"})
}
