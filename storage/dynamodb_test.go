package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo is an in-memory dynamoAPI that understands attribute_not_exists(id).
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func itemID(key map[string]types.AttributeValue) string {
	if v, ok := key["id"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := itemID(in.Item)
	if aws.ToString(in.ConditionExpression) == "attribute_not_exists(id)" {
		if _, ok := f.items[id]; ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[itemID(in.Key)]}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, itemID(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

// TestDynamoStoreInterfaceCompliance verifies DynamoStore implements BlobStore at compile time
func TestDynamoStoreInterfaceCompliance(t *testing.T) {
	var _ BlobStore = (*DynamoStore)(nil)
}

func TestNewDynamoStore_EmptyTable(t *testing.T) {
	_, err := NewDynamoStore(context.Background(), "", "us-east-1")
	assert.Error(t, err)
}

func TestDynamoStore_Contract(t *testing.T) {
	runBlobStoreContract(t, newDynamoStoreWithClient(newFakeDynamo(), "notes"))
}

func TestDynamoStore_ItemShape(t *testing.T) {
	fake := newFakeDynamo()
	store := newDynamoStoreWithClient(fake, "notes")

	require.NoError(t, store.Put(context.Background(), "AbCdEfGhIjK", []byte("payload")))

	item := fake.items["AbCdEfGhIjK"]
	require.NotNil(t, item)
	data, ok := item["data"].(*types.AttributeValueMemberB)
	require.True(t, ok)
	assert.Equal(t, "payload", string(data.Value))
	_, ok = item["stored_at"].(*types.AttributeValueMemberN)
	assert.True(t, ok)
}

func TestDynamoStore_MissingDataAttribute(t *testing.T) {
	fake := newFakeDynamo()
	fake.items["brokenItem1"] = map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: "brokenItem1"},
	}
	store := newDynamoStoreWithClient(fake, "notes")

	got, err := store.Get(context.Background(), "brokenItem1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
