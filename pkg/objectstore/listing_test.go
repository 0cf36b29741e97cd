package objectstore

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/awsbridge/pkg/retry"
)

func object(key string, size int64) types.Object {
	return types.Object{Key: aws.String(key), Size: aws.Int64(size), ETag: aws.String(`"e"`)}
}

func pagedBucket(t *testing.T) *fakeAPI {
	return &fakeAPI{list: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "bucket", aws.ToString(in.Bucket))
		switch aws.ToString(in.ContinuationToken) {
		case "":
			return &s3.ListObjectsV2Output{
				Contents:              []types.Object{object("logs/a.json", 1), object("logs/b.csv", 2)},
				CommonPrefixes:        []types.CommonPrefix{{Prefix: aws.String("logs/2024/")}},
				NextContinuationToken: aws.String("p2"),
			}, nil
		case "p2":
			return &s3.ListObjectsV2Output{
				Contents:       []types.Object{object("logs/c.json", 3)},
				CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("logs/2025/")}},
			}, nil
		}
		t.Fatalf("unexpected token %q", aws.ToString(in.ContinuationToken))
		return nil, nil
	}}
}

func TestScan(t *testing.T) {
	objs, err := NewFromAPI(pagedBucket(t), "bucket").Scan(context.Background(), "logs/", nil)
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "logs/a.json", objs[0].Key)
	assert.Equal(t, "e", objs[0].ETag)
	assert.Equal(t, int64(3), objs[2].Size)
}

func TestScan_WithGlob(t *testing.T) {
	keep, err := GlobFilter("logs/**/*.json")
	require.NoError(t, err)

	objs, err := NewFromAPI(pagedBucket(t), "bucket").Scan(context.Background(), "logs/", keep)
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "logs/a.json", objs[0].Key)
	assert.Equal(t, "logs/c.json", objs[1].Key)
}

func TestScan_PassesPrefixAndPageSize(t *testing.T) {
	api := &fakeAPI{list: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "data/", aws.ToString(in.Prefix))
		assert.Equal(t, int32(DefaultMaxKeys), aws.ToInt32(in.MaxKeys))
		assert.Nil(t, in.Delimiter)
		return &s3.ListObjectsV2Output{}, nil
	}}

	objs, err := NewFromAPI(api, "bucket").Scan(context.Background(), "data/", nil)
	require.NoError(t, err)
	assert.Empty(t, objs)
}

func TestScan_RetriesPage(t *testing.T) {
	calls := 0
	inner := pagedBucket(t)
	api := &fakeAPI{list: func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		calls++
		if calls == 2 {
			return nil, httpError(429, "SlowDown")
		}
		return inner.list(in)
	}}

	store := NewFromAPI(api, "bucket", WithRetry(retry.Config{Delays: retry.Milliseconds(0)}), WithRateLimit(1000))
	objs, err := store.Scan(context.Background(), "logs/", nil)
	require.NoError(t, err)
	assert.Len(t, objs, 3)
	assert.Equal(t, 3, calls)
}

func TestScan_WrapsError(t *testing.T) {
	api := &fakeAPI{list: func(*s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		return nil, httpError(404, "NoSuchBucket")
	}}

	_, err := NewFromAPI(api, "missing").Scan(context.Background(), "x/", nil)
	var objErr *ObjectError
	require.ErrorAs(t, err, &objErr)
	assert.Equal(t, "Scan", objErr.Op)
	assert.ErrorIs(t, err, ErrBucketNotFound)
}

func TestList(t *testing.T) {
	api := pagedBucket(t)
	list := api.list
	api.list = func(in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
		assert.Equal(t, "/", aws.ToString(in.Delimiter))
		return list(in)
	}

	got, err := NewFromAPI(api, "bucket").List(context.Background(), "logs/", "")
	require.NoError(t, err)
	assert.Len(t, got.Objects, 3)
	assert.Equal(t, []string{"logs/2024/", "logs/2025/"}, got.Prefixes)
}

func TestGlobFilter(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"**/*.json", "a/b/c.json", true},
		{"*.json", "a/b.json", false},
		{"data/{2024,2025}/*", "data/2025/x", true},
		{"data/?.txt", "data/ab.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.key, func(t *testing.T) {
			keep, err := GlobFilter(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, keep(ObjectSummary{Key: tt.key}))
		})
	}
}

func TestGlobFilter_Invalid(t *testing.T) {
	_, err := GlobFilter("data/[")
	assert.Error(t, err)
}

func TestGlobPrefix(t *testing.T) {
	assert.Equal(t, "data/2024/", GlobPrefix("data/2024/**/*.csv"))
	assert.Equal(t, "", GlobPrefix("*.csv"))
	assert.Equal(t, "a/b/", GlobPrefix("a/b/c.txt"))
}

func TestEncodeDecodeKey(t *testing.T) {
	tests := []struct {
		key     string
		encoded string
	}{
		{"plain/key.txt", "plain/key.txt"},
		{"with space/file name.txt", "with%20space/file%20name.txt"},
		{"hash#/q?.txt", "hash%23/q%3F.txt"},
		{"pct%/x", "pct%25/x"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.encoded, EncodeKey(tt.key))
			decoded, err := DecodeKey(tt.encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.key, decoded)
		})
	}
}

func TestDecodeKey_Invalid(t *testing.T) {
	_, err := DecodeKey("bad%zz")
	assert.Error(t, err)
}
