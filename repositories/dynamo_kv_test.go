package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pipeline-workers/domain"
)

type MockDynamoDB struct {
	mock.Mock
}

func (m *MockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func (m *MockDynamoDB) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.UpdateItemOutput), args.Error(1)
}

func (m *MockDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.ScanOutput), args.Error(1)
}

func item(key, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk":    &types.AttributeValueMemberS{Value: key},
		"value": &types.AttributeValueMemberS{Value: value},
	}
}

func TestDynamoKV_Get(t *testing.T) {
	mockDB := new(MockDynamoDB)
	kv := NewDynamoKV(mockDB, "pipeline-status")

	mockDB.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, _ := stringAttr(in.Key, "pk")
		return *in.TableName == "pipeline-status" && k == "status:a.csv"
	})).Return(&dynamodb.GetItemOutput{Item: item("status:a.csv", "A")}, nil)
	mockDB.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		k, _ := stringAttr(in.Key, "pk")
		return k == "status:missing.csv"
	})).Return(&dynamodb.GetItemOutput{}, nil)

	v, err := kv.Get(context.Background(), "status:a.csv")
	assert.NoError(t, err)
	assert.Equal(t, "A", v)

	_, err = kv.Get(context.Background(), "status:missing.csv")
	assert.True(t, domain.IsNotFound(err))
	mockDB.AssertExpectations(t)
}

func TestDynamoKV_GetError(t *testing.T) {
	mockDB := new(MockDynamoDB)
	kv := NewDynamoKV(mockDB, "pipeline-status")
	mockDB.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("dynamo error"))

	_, err := kv.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, domain.IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to get k")
}

func TestDynamoKV_Set(t *testing.T) {
	mockDB := new(MockDynamoDB)
	kv := NewDynamoKV(mockDB, "pipeline-status")

	mockDB.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		v, _ := stringAttr(in.ExpressionAttributeValues, ":value")
		return *in.TableName == "pipeline-status" && in.Key["pk"] != nil && v == "payload"
	})).Return(&dynamodb.UpdateItemOutput{}, nil).Once()
	mockDB.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("dynamo error")).Once()

	assert.NoError(t, kv.Set(context.Background(), "sync_status", "payload"))
	err := kv.Set(context.Background(), "sync_status", "payload")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to set sync_status")
	mockDB.AssertExpectations(t)
}

func TestDynamoKV_ScanPaginates(t *testing.T) {
	mockDB := new(MockDynamoDB)
	kv := NewDynamoKV(mockDB, "pipeline-status")
	last := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "status:a.csv"}}

	mockDB.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey == nil && *in.FilterExpression == "begins_with(#k, :prefix)"
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item("status:a.csv", "A")}, LastEvaluatedKey: last}, nil).Once()
	mockDB.On("Scan", mock.Anything, mock.MatchedBy(func(in *dynamodb.ScanInput) bool {
		return in.ExclusiveStartKey != nil
	})).Return(&dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{item("status:b.csv", "B")}}, nil).Once()

	out, err := kv.Scan(context.Background(), "status:")
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"status:a.csv": "A", "status:b.csv": "B"}, out)
	mockDB.AssertExpectations(t)
}
