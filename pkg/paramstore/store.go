// Package paramstore reads and writes AWS Systems Manager parameters with
// retries and full-path pagination.
package paramstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"go.uber.org/zap"

	"github.com/3leaps/awsbridge/pkg/awserrors"
	"github.com/3leaps/awsbridge/pkg/paginate"
	"github.com/3leaps/awsbridge/pkg/retry"
)

// API is the subset of *ssm.Client used by Store.
type API interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	GetParametersByPath(ctx context.Context, in *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
	PutParameter(ctx context.Context, in *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

var _ API = (*ssm.Client)(nil)

// ErrNotFound indicates the parameter does not exist.
var ErrNotFound = errors.New("parameter not found")

// ParamError wraps a failed parameter operation.
type ParamError struct {
	Op   string
	Name string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("ssm %s %s: %v", e.Op, e.Name, e.Err)
}

// Unwrap exposes ErrNotFound for missing parameters along with the SDK error.
func (e *ParamError) Unwrap() []error {
	if isParameterNotFound(e.Err) {
		return []error{ErrNotFound, e.Err}
	}
	return []error{e.Err}
}

// Store accesses parameters through an SSM client.
type Store struct {
	api    API
	retry  retry.Config
	logger *zap.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithRetry sets the retry schedule applied to every call.
func WithRetry(cfg retry.Config) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithLogger sets the logger for retries and listings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store with a client built from awsCfg.
func New(awsCfg aws.Config, opts ...Option) *Store {
	return NewFromAPI(ssm.NewFromConfig(awsCfg), opts...)
}

// NewFromAPI creates a Store over an existing client.
func NewFromAPI(api API, opts ...Option) *Store {
	s := &Store{api: api, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Logger == nil {
		s.retry.Logger = s.logger
	}
	return s
}

// Get returns the decrypted value of name.
func (s *Store) Get(ctx context.Context, name string) (string, error) {
	out, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*ssm.GetParameterOutput, error) {
		return s.api.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(name),
			WithDecryption: aws.Bool(true),
		})
	})
	if err != nil {
		return "", &ParamError{Op: "Get", Name: name, Err: err}
	}
	if out.Parameter == nil {
		return "", nil
	}
	return aws.ToString(out.Parameter.Value), nil
}

// Lookup is Get with a missing parameter reported as found == false
// instead of an error.
func (s *Store) Lookup(ctx context.Context, name string) (value string, found bool, err error) {
	value, err = s.Get(ctx, name)
	switch {
	case err == nil:
		return value, true, nil
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	default:
		return "", false, err
	}
}

// GetByPath returns every parameter under path, keyed by full name, with
// values decrypted. recursive includes the whole hierarchy below path.
func (s *Store) GetByPath(ctx context.Context, path string, recursive bool) (map[string]string, error) {
	fetch := func(ctx context.Context, in *ssm.GetParametersByPathInput) (*ssm.GetParametersByPathOutput, error) {
		return retry.Run(ctx, s.retry, func(ctx context.Context) (*ssm.GetParametersByPathOutput, error) {
			return s.api.GetParametersByPath(ctx, in)
		})
	}

	params, err := paginate.FetchNextToken(ctx, fetch, &ssm.GetParametersByPathInput{
		Path:           aws.String(path),
		Recursive:      aws.Bool(recursive),
		WithDecryption: aws.Bool(true),
	}, paginate.Options[types.Parameter]{Items: "Parameters", Logger: s.logger})
	if err != nil {
		return nil, &ParamError{Op: "GetByPath", Name: path, Err: err}
	}

	out := make(map[string]string, len(params))
	for _, p := range params {
		out[aws.ToString(p.Name)] = aws.ToString(p.Value)
	}
	return out, nil
}

// Put writes value to name. secure stores it as a SecureString; overwrite
// replaces an existing parameter.
func (s *Store) Put(ctx context.Context, name, value string, secure, overwrite bool) error {
	typ := types.ParameterTypeString
	if secure {
		typ = types.ParameterTypeSecureString
	}
	_, err := retry.Run(ctx, s.retry, func(ctx context.Context) (*ssm.PutParameterOutput, error) {
		return s.api.PutParameter(ctx, &ssm.PutParameterInput{
			Name:      aws.String(name),
			Value:     aws.String(value),
			Type:      typ,
			Overwrite: aws.Bool(overwrite),
		})
	})
	if err != nil {
		return &ParamError{Op: "Put", Name: name, Err: err}
	}
	return nil
}

func isParameterNotFound(err error) bool {
	var notFound *types.ParameterNotFound
	if errors.As(err, &notFound) {
		return true
	}
	return awserrors.ErrorCode(err) == "ParameterNotFound"
}
