// Package cloudtest provides fixtures for integration tests against a local
// moto server, which emulates S3, SSM and DynamoDB without real credentials.
// Tests using this package should be tagged with //go:build cloudintegration.
//
// Usage:
//
//	func TestScan_CloudIntegration(t *testing.T) {
//	    cloudtest.SkipIfUnavailable(t)
//	    store := cloudtest.Store(t, ctx)
//	    cloudtest.PutObjects(t, ctx, store, "a.txt", "b/c.txt")
//	    // ... test code ...
//	}
package cloudtest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/3leaps/awsbridge/pkg/objectstore"
	"github.com/3leaps/awsbridge/pkg/settings"
)

const (
	// DefaultEndpoint is the default moto server endpoint.
	// Port 5555 avoids conflict with macOS AirTunes on 5000.
	DefaultEndpoint = "http://localhost:5555"

	// DefaultRegion is the default AWS region for tests.
	DefaultRegion = "us-east-1"

	// TestAccessKeyID and TestSecretAccessKey are accepted by moto as-is.
	TestAccessKeyID     = "testing"
	TestSecretAccessKey = "testing"
)

var (
	// Endpoint is the moto server endpoint, configurable via MOTO_ENDPOINT.
	Endpoint = getEnvOrDefault("MOTO_ENDPOINT", DefaultEndpoint)

	// Region is the AWS region for tests, configurable via MOTO_REGION.
	Region = getEnvOrDefault("MOTO_REGION", DefaultRegion)

	awsCfg     aws.Config
	awsCfgOnce sync.Once
	awsCfgErr  error
)

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Available checks if the moto server is reachable.
func Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, Endpoint+"/moto-api/", nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// SkipIfUnavailable skips the test if the moto server is not available.
func SkipIfUnavailable(t *testing.T) {
	t.Helper()
	if !Available() {
		t.Skipf("moto server not available at %s (start with: moto_server -p 5555)", Endpoint)
	}
}

// Settings returns the AWS settings pointing at moto.
func Settings() settings.AWS {
	return settings.AWS{
		Region:          Region,
		Endpoint:        Endpoint,
		AccessKeyID:     TestAccessKeyID,
		SecretAccessKey: TestSecretAccessKey,
		SDKMaxAttempts:  1,
	}
}

// AWSConfig returns a shared SDK configuration for moto, failing the test
// on error.
func AWSConfig(t *testing.T) aws.Config {
	t.Helper()
	awsCfgOnce.Do(func() {
		awsCfg, awsCfgErr = settings.AWSConfig(context.Background(), Settings(), nil)
	})
	if awsCfgErr != nil {
		t.Fatalf("failed to load AWS config: %v", awsCfgErr)
	}
	return awsCfg
}

// Store creates a uniquely named bucket and returns a Store for it. The
// bucket and its contents are removed when the test ends.
func Store(t *testing.T, ctx context.Context, opts ...objectstore.Option) *objectstore.Store {
	t.Helper()

	name := uniqueName(t, 50)
	client := s3.NewFromConfig(AWSConfig(t), func(o *s3.Options) { o.UsePathStyle = true })
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)}); err != nil {
		t.Fatalf("failed to create bucket %s: %v", name, err)
	}

	store, err := objectstore.New(AWSConfig(t), objectstore.Config{
		Bucket:         name,
		Endpoint:       Endpoint,
		ForcePathStyle: true,
	}, opts...)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		emptyBucket(t, store)
		if _, err := client.DeleteBucket(context.Background(), &s3.DeleteBucketInput{Bucket: aws.String(name)}); err != nil {
			t.Logf("warning: failed to delete bucket %s: %v", name, err)
		}
	})
	return store
}

func emptyBucket(t *testing.T, store *objectstore.Store) {
	ctx := context.Background()
	objs, err := store.Scan(ctx, "", nil)
	if err != nil {
		t.Logf("warning: failed to list bucket %s: %v", store.Bucket(), err)
		return
	}
	for _, o := range objs {
		if err := store.Delete(ctx, o.Key); err != nil {
			t.Logf("warning: failed to delete object %s: %v", o.Key, err)
		}
	}
}

// PutObjects uploads an object per key whose content names the key.
func PutObjects(t *testing.T, ctx context.Context, store *objectstore.Store, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if err := store.Put(ctx, key, []byte("test content for "+key), "text/plain"); err != nil {
			t.Fatalf("failed to put object %s: %v", key, err)
		}
	}
}

// CreateTable creates a table with a single string hash key "id" and
// deletes it when the test ends.
func CreateTable(t *testing.T, ctx context.Context) (*dynamodb.Client, string) {
	t.Helper()

	name := uniqueName(t, 200)
	client := dynamodb.NewFromConfig(AWSConfig(t))
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil {
		t.Fatalf("failed to create table %s: %v", name, err)
	}

	t.Cleanup(func() {
		if _, err := client.DeleteTable(context.Background(), &dynamodb.DeleteTableInput{TableName: aws.String(name)}); err != nil {
			t.Logf("warning: failed to delete table %s: %v", name, err)
		}
	})
	return client, name
}

// uniqueName derives a lowercase resource name from the test name.
func uniqueName(t *testing.T, limit int) string {
	name := strings.ToLower(t.Name())
	name = strings.NewReplacer("/", "-", "_", "-", " ", "-").Replace(name)
	if len(name) > limit {
		name = name[:limit]
	}
	return fmt.Sprintf("%s-%s", name, uuid.New().String()[:8])
}
