package repositories

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"pipeline-workers/domain"
)

// Attribute names of the registry table. pk is the partition key.
const (
	dynamoKeyAttr   = "pk"
	dynamoValueAttr = "value"
)

type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoKV stores registry keys as items of a single table.
type DynamoKV struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoKV(client DynamoDBAPI, tableName string) *DynamoKV {
	return &DynamoKV{
		client:    client,
		tableName: tableName,
	}
}

func (d *DynamoKV) Get(ctx context.Context, key string) (string, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            map[string]types.AttributeValue{dynamoKeyAttr: &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to get %s from DynamoDB", key)
	}
	v, ok := stringAttr(out.Item, dynamoValueAttr)
	if !ok {
		return "", errors.Wrapf(domain.ErrNotFound, "dynamodb get %s", key)
	}
	return v, nil
}

func (d *DynamoKV) Set(ctx context.Context, key, value string) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			dynamoKeyAttr: &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("SET #v = :value"),
		ExpressionAttributeNames: map[string]string{
			"#v": dynamoValueAttr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value": &types.AttributeValueMemberS{Value: value},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to set %s in DynamoDB", key)
	}
	return nil
}

// Scan pages through the table with a begins_with filter on the key.
func (d *DynamoKV) Scan(ctx context.Context, prefix string) (map[string]string, error) {
	out := map[string]string{}
	var start map[string]types.AttributeValue
	for {
		page, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(d.tableName),
			FilterExpression:         aws.String("begins_with(#k, :prefix)"),
			ExpressionAttributeNames: map[string]string{"#k": dynamoKeyAttr},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":prefix": &types.AttributeValueMemberS{Value: prefix},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s in DynamoDB", prefix)
		}
		for _, item := range page.Items {
			k, okK := stringAttr(item, dynamoKeyAttr)
			v, okV := stringAttr(item, dynamoValueAttr)
			if okK && okV {
				out[k] = v
			}
		}
		if len(page.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = page.LastEvaluatedKey
	}
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, bool) {
	s, ok := item[name].(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}
