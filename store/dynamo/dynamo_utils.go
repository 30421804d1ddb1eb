package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/zlnvch/whiteboard/store"
)

func newDynamoDBClient(ctx context.Context, devMode bool, dynamodbEndpoint string) (*dynamodb.Client, error) {
	if devMode {
		// Dummy credentials and a fixed region for dynamodb-local
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion("us-east-1"),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider("dummy", "dummy", ""),
			),
		)
		if err != nil {
			return nil, err
		}

		return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(dynamodbEndpoint)
		}), nil
	}

	// Production: default config (task role and AWS endpoints)
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}

	return dynamodb.NewFromConfig(cfg), nil
}

func getTables(client *dynamodb.Client, ctx context.Context) ([]string, error) {
	var tables []string
	paginator := dynamodb.NewListTablesPaginator(client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		tables = append(tables, page.TableNames...)
	}
	return tables, nil
}

// getItem retrieves an item of type T from DynamoDB by PK and SK
func getItem[T any](dynamoStore *DynamoCanvasStore, ctx context.Context, pk string, sk string, consistentRead bool) (T, error) {
	var zero T

	key := map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}

	resp, err := dynamoStore.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(dynamoStore.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(consistentRead),
	})
	if err != nil {
		return zero, fmt.Errorf("GetItem failed: %w", err)
	}
	if resp.Item == nil {
		return zero, store.ErrItemNotFound
	}

	var item T
	if err := attributevalue.UnmarshalMap(resp.Item, &item); err != nil {
		return zero, fmt.Errorf("failed to unmarshal item: %w", err)
	}

	return item, nil
}

// updateItem sets the listed fields of an existing item.
// Returns store.ErrItemNotFound if the item does not exist.
func updateItem[T any](dynamoStore *DynamoCanvasStore, ctx context.Context, item T, fieldsToUpdate []string) error {
	avMap, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	pkAttr, ok := avMap["PK"]
	if !ok {
		return errors.New("struct missing PK field")
	}
	skAttr, ok := avMap["SK"]
	if !ok {
		return errors.New("struct missing SK field")
	}

	updateExpr, exprAttrNames, exprAttrValues, err := buildSetExpression(avMap, fieldsToUpdate)
	if err != nil {
		return err
	}

	_, err = dynamoStore.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Key: map[string]types.AttributeValue{
			"PK": pkAttr,
			"SK": skAttr,
		},
		UpdateExpression:          aws.String(updateExpr),
		ExpressionAttributeNames:  exprAttrNames,
		ExpressionAttributeValues: exprAttrValues,
		ConditionExpression:       aws.String("attribute_exists(PK) AND attribute_exists(SK)"),
	})
	return updateError(err)
}

// updateError maps a failed existence condition to store.ErrItemNotFound.
func updateError(err error) error {
	if err == nil {
		return nil
	}
	var cce *types.ConditionalCheckFailedException
	if errors.As(err, &cce) {
		return store.ErrItemNotFound
	}
	return fmt.Errorf("update failed: %w", err)
}

// buildSetExpression renders "SET #a = :a, #b = :b" for the requested fields.
// Key attributes are never updated. Fields are sorted so the expression is stable.
func buildSetExpression(avMap map[string]types.AttributeValue, fieldsToUpdate []string) (string, map[string]string, map[string]types.AttributeValue, error) {
	fields := make([]string, 0, len(fieldsToUpdate))
	for _, field := range fieldsToUpdate {
		if field == "PK" || field == "SK" {
			continue
		}
		if _, ok := avMap[field]; !ok {
			continue
		}
		fields = append(fields, field)
	}
	if len(fields) == 0 {
		return "", nil, nil, errors.New("no fields to update")
	}
	sort.Strings(fields)

	assignments := make([]string, 0, len(fields))
	exprAttrNames := make(map[string]string, len(fields))
	exprAttrValues := make(map[string]types.AttributeValue, len(fields))
	for _, field := range fields {
		assignments = append(assignments, fmt.Sprintf("#%s = :%s", field, field))
		exprAttrNames["#"+field] = field
		exprAttrValues[":"+field] = avMap[field]
	}

	return "SET " + strings.Join(assignments, ", "), exprAttrNames, exprAttrValues, nil
}
