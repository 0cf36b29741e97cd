package paramstore

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/awsbridge/pkg/retry"
)

type fakeSSM struct {
	params   map[string]string
	pageSize int
	failures []error
	calls    int
	puts     []*ssm.PutParameterInput
}

func (f *fakeSSM) fail() error {
	f.calls++
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	if !aws.ToBool(in.WithDecryption) {
		return nil, errors.New("expected decryption")
	}
	v, ok := f.params[aws.ToString(in.Name)]
	if !ok {
		return nil, &types.ParameterNotFound{Message: aws.String("not found")}
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

// GetParametersByPath pages through sorted names under the path, using the
// index of the next entry as the token.
func (f *fakeSSM) GetParametersByPath(_ context.Context, in *ssm.GetParametersByPathInput, _ ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	names := []string{"/app/db/host", "/app/db/pass", "/app/name"}
	start := 0
	if in.NextToken != nil {
		for i, n := range names {
			if n == *in.NextToken {
				start = i
			}
		}
	}

	out := &ssm.GetParametersByPathOutput{}
	end := start + f.pageSize
	if end < len(names) {
		out.NextToken = aws.String(names[end])
	} else {
		end = len(names)
	}
	for _, n := range names[start:end] {
		out.Parameters = append(out.Parameters, types.Parameter{Name: aws.String(n), Value: aws.String(f.params[n])})
	}
	return out, nil
}

func (f *fakeSSM) PutParameter(_ context.Context, in *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	return &ssm.PutParameterOutput{Version: 1}, nil
}

func newFake() *fakeSSM {
	return &fakeSSM{
		params: map[string]string{
			"/app/db/host": "db.internal",
			"/app/db/pass": "s3cret",
			"/app/name":    "billing",
		},
		pageSize: 2,
	}
}

func TestGet(t *testing.T) {
	v, err := NewFromAPI(newFake()).Get(context.Background(), "/app/name")
	require.NoError(t, err)
	assert.Equal(t, "billing", v)
}

func TestGet_NotFound(t *testing.T) {
	_, err := NewFromAPI(newFake()).Get(context.Background(), "/missing")

	var pe *ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Get", pe.Op)
	assert.Equal(t, "/missing", pe.Name)
	assert.ErrorIs(t, err, ErrNotFound)

	var modeled *types.ParameterNotFound
	assert.ErrorAs(t, err, &modeled)
}

func TestLookup(t *testing.T) {
	store := NewFromAPI(newFake())

	v, found, err := store.Lookup(context.Background(), "/app/db/host")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "db.internal", v)

	v, found, err = store.Lookup(context.Background(), "/nope")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestLookup_LegacyNotFoundCode(t *testing.T) {
	f := newFake()
	f.failures = []error{awserr.New("ParameterNotFound", "gone", nil)}

	_, found, err := NewFromAPI(f).Lookup(context.Background(), "/app/name")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLookup_OtherErrorsSurface(t *testing.T) {
	f := newFake()
	boom := awserr.NewRequestFailure(awserr.New("AccessDeniedException", "denied", nil), http.StatusBadRequest, "r1")
	f.failures = []error{boom}

	_, found, err := NewFromAPI(f).Lookup(context.Background(), "/app/name")
	assert.False(t, found)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGet_RetriesThrottling(t *testing.T) {
	f := newFake()
	f.failures = []error{
		awserr.NewRequestFailure(awserr.New("ThrottlingException", "slow down", nil), http.StatusTooManyRequests, "r1"),
	}

	store := NewFromAPI(f, WithRetry(retry.Config{Delays: retry.Milliseconds(0, 0)}))
	v, err := store.Get(context.Background(), "/app/name")
	require.NoError(t, err)
	assert.Equal(t, "billing", v)
	assert.Equal(t, 2, f.calls)
}

func TestGetByPath(t *testing.T) {
	f := newFake()
	got, err := NewFromAPI(f).GetByPath(context.Background(), "/app", true)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"/app/db/host": "db.internal",
		"/app/db/pass": "s3cret",
		"/app/name":    "billing",
	}, got)
	assert.Equal(t, 2, f.calls)
}

func TestGetByPath_RetriesPage(t *testing.T) {
	f := newFake()
	f.pageSize = 1
	f.failures = []error{nil, awserr.NewRequestFailure(awserr.New("ThrottlingException", "slow", nil), 429, "r")}

	got, err := NewFromAPI(f, WithRetry(retry.Config{Delays: retry.Milliseconds(0)})).GetByPath(context.Background(), "/app", true)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 4, f.calls)
}

func TestPut(t *testing.T) {
	f := newFake()
	store := NewFromAPI(f)

	require.NoError(t, store.Put(context.Background(), "/app/token", "t0k", true, false))
	require.NoError(t, store.Put(context.Background(), "/app/mode", "blue", false, true))

	require.Len(t, f.puts, 2)
	assert.Equal(t, types.ParameterTypeSecureString, f.puts[0].Type)
	assert.False(t, aws.ToBool(f.puts[0].Overwrite))
	assert.Equal(t, types.ParameterTypeString, f.puts[1].Type)
	assert.True(t, aws.ToBool(f.puts[1].Overwrite))
}
