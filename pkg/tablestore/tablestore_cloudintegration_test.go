//go:build cloudintegration

package tablestore_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/awsbridge/pkg/tablestore"
	"github.com/3leaps/awsbridge/test/cloudtest"
)

type record struct {
	ID    string `dynamodbav:"id"`
	Count int    `dynamodbav:"count"`
}

func TestScanAll_CloudIntegration(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()
	client, table := cloudtest.CreateTable(t, ctx)

	for i := range 7 {
		require.NoError(t, tablestore.Put(ctx, client, table, record{ID: fmt.Sprintf("r%d", i), Count: i}, tablestore.Options{}))
	}

	got, err := tablestore.ScanAll[record](ctx, client, &dynamodb.ScanInput{
		TableName: aws.String(table),
		Limit:     aws.Int32(2),
	}, tablestore.Options{})
	require.NoError(t, err)
	require.Len(t, got, 7)

	sort.Slice(got, func(i, j int) bool { return got[i].ID < got[j].ID })
	assert.Equal(t, record{ID: "r3", Count: 3}, got[3])
}
