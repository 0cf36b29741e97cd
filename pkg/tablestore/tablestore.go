// Package tablestore reads whole DynamoDB scans and queries into typed
// values, following LastEvaluatedKey until the table is exhausted.
package tablestore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/3leaps/awsbridge/pkg/paginate"
	"github.com/3leaps/awsbridge/pkg/retry"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

// Scanner is satisfied by *dynamodb.Client.
type Scanner interface {
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Querier is satisfied by *dynamodb.Client.
type Querier interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Putter is satisfied by *dynamodb.Client.
type Putter interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var (
	_ Scanner = (*dynamodb.Client)(nil)
	_ Querier = (*dynamodb.Client)(nil)
	_ Putter  = (*dynamodb.Client)(nil)
)

// Options tunes ScanAll, QueryAll and Put.
type Options struct {
	// Retry is applied to every page request.
	Retry retry.Config

	// Filter drops raw items before they are decoded. Nil keeps all.
	Filter func(Item) bool

	// RateLimit caps page requests per second. Zero means unlimited.
	RateLimit float64

	Logger *zap.Logger
}

// TableError wraps a failed table operation.
type TableError struct {
	Op    string
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("dynamodb %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// ScanAll runs a full scan and decodes every item into T.
func ScanAll[T any](ctx context.Context, api Scanner, input *dynamodb.ScanInput, opts Options) ([]T, error) {
	if input == nil {
		input = &dynamodb.ScanInput{}
	}
	fetch := func(ctx context.Context, in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		return retry.Run(ctx, opts.retryConfig(), func(ctx context.Context) (*dynamodb.ScanOutput, error) {
			return api.Scan(ctx, in)
		})
	}

	items, err := paginate.FetchExclusiveStartKey(ctx, fetch, input, opts.paging())
	if err != nil {
		return nil, &TableError{Op: "Scan", Table: tableName(input.TableName), Err: err}
	}
	return decode[T]("Scan", tableName(input.TableName), items)
}

// QueryAll runs a query to completion and decodes every item into T.
func QueryAll[T any](ctx context.Context, api Querier, input *dynamodb.QueryInput, opts Options) ([]T, error) {
	if input == nil {
		input = &dynamodb.QueryInput{}
	}
	fetch := func(ctx context.Context, in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return retry.Run(ctx, opts.retryConfig(), func(ctx context.Context) (*dynamodb.QueryOutput, error) {
			return api.Query(ctx, in)
		})
	}

	items, err := paginate.FetchExclusiveStartKey(ctx, fetch, input, opts.paging())
	if err != nil {
		return nil, &TableError{Op: "Query", Table: tableName(input.TableName), Err: err}
	}
	return decode[T]("Query", tableName(input.TableName), items)
}

// Put marshals v and writes it to table.
func Put(ctx context.Context, api Putter, table string, v any, opts Options) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return &TableError{Op: "Put", Table: table, Err: err}
	}

	_, err = retry.Run(ctx, opts.retryConfig(), func(ctx context.Context) (*dynamodb.PutItemOutput, error) {
		return api.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(table),
			Item:      item,
		})
	})
	if err != nil {
		return &TableError{Op: "Put", Table: table, Err: err}
	}
	return nil
}

func (o Options) paging() paginate.Options[Item] {
	return paginate.Options[Item]{
		Filter:    o.Filter,
		RateLimit: o.RateLimit,
		Logger:    o.Logger,
	}
}

func (o Options) retryConfig() retry.Config {
	c := o.Retry
	if c.Logger == nil {
		c.Logger = o.Logger
	}
	return c
}

func decode[T any](op, table string, items []Item) ([]T, error) {
	out := make([]T, 0, len(items))
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, &TableError{Op: op, Table: table, Err: fmt.Errorf("decode items: %w", err)}
	}
	return out, nil
}

func tableName(name *string) string {
	return aws.ToString(name)
}
