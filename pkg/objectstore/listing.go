package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/3leaps/awsbridge/pkg/paginate"
	"github.com/3leaps/awsbridge/pkg/retry"
)

// Listing is the result of a delimited List.
type Listing struct {
	Objects  []ObjectSummary
	Prefixes []string
}

// Scan returns every object under prefix, across all pages. keep, when
// non-nil, drops objects before they are accumulated.
func (s *Store) Scan(ctx context.Context, prefix string, keep func(ObjectSummary) bool) ([]ObjectSummary, error) {
	var filter func(types.Object) bool
	if keep != nil {
		filter = func(o types.Object) bool { return keep(summarize(o)) }
	}

	objs, err := paginate.FetchContinuationToken(ctx, s.listPage, s.listInput(prefix, ""), paginate.Options[types.Object]{
		Filter:    filter,
		RateLimit: s.rateLimit,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, s.wrapError("Scan", prefix, err)
	}

	out := make([]ObjectSummary, len(objs))
	for i, o := range objs {
		out[i] = summarize(o)
	}
	return out, nil
}

// List returns the objects and common prefixes directly under prefix,
// grouping deeper keys at delimiter. An empty delimiter defaults to "/".
func (s *Store) List(ctx context.Context, prefix, delimiter string) (*Listing, error) {
	if delimiter == "" {
		delimiter = "/"
	}

	l, err := paginate.FetchListing(ctx, s.listPage, s.listInput(prefix, delimiter),
		paginate.ListingOptions[types.Object, types.CommonPrefix]{
			RateLimit: s.rateLimit,
			Logger:    s.logger,
		})
	if err != nil {
		return nil, s.wrapError("List", prefix, err)
	}

	out := &Listing{
		Objects:  make([]ObjectSummary, len(l.Objects)),
		Prefixes: make([]string, len(l.Prefixes)),
	}
	for i, o := range l.Objects {
		out.Objects[i] = summarize(o)
	}
	for i, p := range l.Prefixes {
		out.Prefixes[i] = aws.ToString(p.Prefix)
	}
	return out, nil
}

// listPage fetches one page, retried under the store's policy.
func (s *Store) listPage(ctx context.Context, in *s3.ListObjectsV2Input) (*s3.ListObjectsV2Output, error) {
	return retry.Run(ctx, s.retry, func(ctx context.Context) (*s3.ListObjectsV2Output, error) {
		return s.api.ListObjectsV2(ctx, in)
	})
}

func (s *Store) listInput(prefix, delimiter string) *s3.ListObjectsV2Input {
	in := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		MaxKeys: aws.Int32(int32(s.maxKeys)),
	}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	if delimiter != "" {
		in.Delimiter = aws.String(delimiter)
	}
	return in
}

func summarize(o types.Object) ObjectSummary {
	return ObjectSummary{
		Key:          aws.ToString(o.Key),
		Size:         aws.ToInt64(o.Size),
		ETag:         cleanETag(aws.ToString(o.ETag)),
		LastModified: aws.ToTime(o.LastModified),
	}
}

// GlobFilter returns a Scan predicate matching keys against a doublestar
// pattern ("**" crosses "/" boundaries, "*" does not).
func GlobFilter(pattern string) (func(ObjectSummary) bool, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	return func(o ObjectSummary) bool {
		ok, _ := doublestar.Match(pattern, o.Key)
		return ok
	}, nil
}

// GlobPrefix returns the literal leading directory of pattern, usable as the
// Scan prefix so that only matching subtrees are listed.
func GlobPrefix(pattern string) string {
	base, _ := doublestar.SplitPattern(pattern)
	if base == "." {
		return ""
	}
	return base + "/"
}

// EncodeKey escapes each "/"-separated segment of key for use in a URL path
// or a CopySource header, keeping the separators.
func EncodeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// DecodeKey reverses EncodeKey.
func DecodeKey(encoded string) (string, error) {
	parts := strings.Split(encoded, "/")
	for i, p := range parts {
		d, err := url.PathUnescape(p)
		if err != nil {
			return "", fmt.Errorf("decode key segment %q: %w", p, err)
		}
		parts[i] = d
	}
	return strings.Join(parts, "/"), nil
}
