package paginate

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
)

// FromRequest adapts an aws-sdk-go request builder such as
// (*s3.S3).ListObjectsRequest. Each call builds a fresh request, binds ctx
// to it and sends it.
func FromRequest[In, Out any](build func(in *In) (*request.Request, *Out)) FetchFunc[In, Out] {
	return func(ctx context.Context, in *In) (*Out, error) {
		req, out := build(in)
		req.SetContext(ctx)
		if err := req.Send(); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// V1 adapts an aws-sdk-go WithContext method such as
// (*s3.S3).ListObjectsWithContext.
func V1[In, Out any](call func(ctx aws.Context, in *In, opts ...request.Option) (*Out, error)) FetchFunc[In, Out] {
	return func(ctx context.Context, in *In) (*Out, error) {
		return call(ctx, in)
	}
}

// V2 adapts an aws-sdk-go-v2 client method such as (*s3.Client).ListObjectsV2.
func V2[In, Out, O any](call func(ctx context.Context, in *In, optFns ...func(*O)) (*Out, error)) FetchFunc[In, Out] {
	return func(ctx context.Context, in *In) (*Out, error) {
		return call(ctx, in)
	}
}
