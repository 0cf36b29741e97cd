package tablestore

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/awsbridge/pkg/retry"
)

type user struct {
	ID    string `dynamodbav:"id"`
	Age   int    `dynamodbav:"age"`
	Admin bool   `dynamodbav:"admin,omitempty"`
}

func userItem(id string, age int) Item {
	return Item{
		"id":  &types.AttributeValueMemberS{Value: id},
		"age": &types.AttributeValueMemberN{Value: strconv.Itoa(age)},
	}
}

func throttled() error {
	return &smithy.OperationError{
		ServiceID:     "DynamoDB",
		OperationName: "Scan",
		Err: &awshttp.ResponseError{
			ResponseError: &smithyhttp.ResponseError{
				Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusBadRequest, Header: http.Header{}}},
				Err:      &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"},
			},
		},
	}
}

// fakeTable serves two pages of users for both Scan and Query.
type fakeTable struct {
	calls    int
	failures []error
	starts   []string
	puts     []*dynamodb.PutItemInput
}

func (f *fakeTable) page(start Item) ([]Item, Item, error) {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		if err != nil {
			return nil, nil, err
		}
	}

	id := ""
	if v, ok := start["id"].(*types.AttributeValueMemberS); ok {
		id = v.Value
	}
	f.starts = append(f.starts, id)

	if id == "" {
		return []Item{userItem("u1", 30), userItem("u2", 41)}, Item{"id": &types.AttributeValueMemberS{Value: "u2"}}, nil
	}
	return []Item{userItem("u3", 25)}, nil, nil
}

func (f *fakeTable) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	items, last, err := f.page(in.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{Items: items, LastEvaluatedKey: last, Count: int32(len(items))}, nil
}

func (f *fakeTable) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	items, last, err := f.page(in.ExclusiveStartKey)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.calls++
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, nil
}

func TestScanAll(t *testing.T) {
	f := &fakeTable{}
	in := &dynamodb.ScanInput{TableName: aws.String("users")}

	users, err := ScanAll[user](context.Background(), f, in, Options{})
	require.NoError(t, err)

	assert.Equal(t, []user{{ID: "u1", Age: 30}, {ID: "u2", Age: 41}, {ID: "u3", Age: 25}}, users)
	assert.Equal(t, []string{"", "u2"}, f.starts)
	assert.Nil(t, in.ExclusiveStartKey)
}

func TestScanAll_Filter(t *testing.T) {
	over30 := func(it Item) bool {
		n, ok := it["age"].(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		age, _ := strconv.Atoi(n.Value)
		return age > 30
	}

	users, err := ScanAll[user](context.Background(), &fakeTable{}, &dynamodb.ScanInput{TableName: aws.String("users")}, Options{Filter: over30})
	require.NoError(t, err)
	assert.Equal(t, []user{{ID: "u2", Age: 41}}, users)
}

func TestScanAll_RetriesThrottledPage(t *testing.T) {
	f := &fakeTable{failures: []error{nil, throttled()}}

	users, err := ScanAll[user](context.Background(), f, &dynamodb.ScanInput{TableName: aws.String("users")}, Options{
		Retry: retry.Config{Delays: retry.Milliseconds(0), Statuses: retry.StatusCodes(http.StatusBadRequest)},
	})
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, 3, f.calls)
}

func TestScanAll_ErrorWrapped(t *testing.T) {
	sdkErr := throttled()
	f := &fakeTable{failures: []error{sdkErr}}

	users, err := ScanAll[user](context.Background(), f, &dynamodb.ScanInput{TableName: aws.String("users")}, Options{})
	assert.Nil(t, users)

	var te *TableError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Scan", te.Op)
	assert.Equal(t, "users", te.Table)
	assert.True(t, errors.Is(err, sdkErr))
	assert.Equal(t, 1, f.calls)
}

func TestScanAll_DecodeError(t *testing.T) {
	type strict struct {
		Age string `dynamodbav:"age"`
		ID  int    `dynamodbav:"id"`
	}
	_, err := ScanAll[strict](context.Background(), &fakeTable{}, &dynamodb.ScanInput{TableName: aws.String("users")}, Options{})

	var te *TableError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, err.Error(), "decode items")
}

func TestQueryAll(t *testing.T) {
	f := &fakeTable{}
	in := &dynamodb.QueryInput{
		TableName:              aws.String("users"),
		KeyConditionExpression: aws.String("id = :id"),
	}

	users, err := QueryAll[user](context.Background(), f, in, Options{RateLimit: 1000})
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, []string{"", "u2"}, f.starts)
}

func TestQueryAll_RawItems(t *testing.T) {
	items, err := QueryAll[map[string]any](context.Background(), &fakeTable{}, nil, Options{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "u1", items[0]["id"])
}

func TestPut(t *testing.T) {
	f := &fakeTable{}
	require.NoError(t, Put(context.Background(), f, "users", user{ID: "u9", Age: 7, Admin: true}, Options{}))

	require.Len(t, f.puts, 1)
	assert.Equal(t, "users", aws.ToString(f.puts[0].TableName))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "u9"}, f.puts[0].Item["id"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, f.puts[0].Item["age"])
	assert.Equal(t, &types.AttributeValueMemberBOOL{Value: true}, f.puts[0].Item["admin"])
}
