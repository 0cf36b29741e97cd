package paginate

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws/awsutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FetchFunc performs one paged call. It must not retain in after returning.
type FetchFunc[In, Out any] func(ctx context.Context, in *In) (*Out, error)

// Options tunes a field-addressed listing.
type Options[T any] struct {
	// Items overrides the convention's items field.
	Items string

	// Filter keeps only items for which it returns true. Nil keeps all.
	// It is applied before accumulation, page by page.
	Filter func(item T) bool

	// RateLimit caps page requests per second. Zero means unlimited.
	RateLimit float64

	// Logger receives a debug entry per page. Nil disables logging.
	Logger *zap.Logger
}

// pageConfig is the type-independent part of Options and ListingOptions.
type pageConfig struct {
	rateLimit float64
	logger    *zap.Logger
}

func (c pageConfig) limiter() *rate.Limiter {
	if c.rateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.rateLimit), 1)
}

func (c pageConfig) log() *zap.Logger {
	if c.logger == nil {
		return zap.NewNop()
	}
	return c.logger
}

// Fetch lists every page of fetch using conv and returns the items of all
// pages in order.
//
// The first call is made with a shallow copy of input; later calls carry
// the previous response's cursor in the convention's request field. input
// itself is never modified. The listing continues while the response cursor
// is present and more, when non-nil, returns true for the page just read.
func Fetch[T, In, Out any](
	ctx context.Context,
	fetch FetchFunc[In, Out],
	input *In,
	conv Convention,
	more func(page *Out) bool,
	opts Options[T],
) ([]T, error) {
	field := opts.Items
	if field == "" {
		field = conv.Items
	}
	if field == "" {
		return nil, ErrNoItemsField
	}

	extract := func(out *Out) ([]T, error) {
		return itemsAt(out, field, opts.Filter)
	}
	fold := func(acc []T, items []T) []T {
		return append(acc, items...)
	}

	cfg := pageConfig{rateLimit: opts.RateLimit, logger: opts.Logger}
	return walkFields(ctx, fetch, input, conv, more, cfg, extract, fold, []T{})
}

// FetchPosition lists with the position/position convention.
func FetchPosition[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, Position, nil, opts)
}

// FetchNextToken lists with the NextToken/NextToken convention.
func FetchNextToken[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, NextToken, nil, opts)
}

// FetchLowerNextToken lists with the nextToken/nextToken convention.
func FetchLowerNextToken[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, LowerNextToken, nil, opts)
}

// FetchMarker lists with the Marker/NextMarker convention.
func FetchMarker[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, Marker, nil, opts)
}

// FetchContinuationToken lists with the ContinuationToken convention.
// Items default to Contents.
func FetchContinuationToken[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, ContinuationToken, nil, opts)
}

// FetchExclusiveStartKey lists with the ExclusiveStartKey/LastEvaluatedKey
// convention. Items default to Items.
func FetchExclusiveStartKey[T, In, Out any](ctx context.Context, fetch FetchFunc[In, Out], input *In, opts Options[T]) ([]T, error) {
	return Fetch(ctx, fetch, input, ExclusiveStartKey, nil, opts)
}

// fieldPage is one decoded response.
type fieldPage[Out, A any] struct {
	out   *Out
	token any
	part  A
}

// walkFields runs Walk over a field-addressed request/response pair.
// extract decodes each page inside the fetch step so decoding errors stop
// the walk like fetch errors do.
func walkFields[In, Out, A, Acc any](
	ctx context.Context,
	fetch FetchFunc[In, Out],
	input *In,
	conv Convention,
	more func(page *Out) bool,
	cfg pageConfig,
	extract func(out *Out) (A, error),
	fold func(acc Acc, part A) Acc,
	initial Acc,
) (Acc, error) {
	var zero Acc
	if err := conv.validate(); err != nil {
		return zero, err
	}
	if input == nil {
		input = new(In)
	}

	limiter := cfg.limiter()
	logger := cfg.log().With(zap.String("token_field", conv.RequestToken))
	pages := 0

	step := func(ctx context.Context, token any) (fieldPage[Out, A], error) {
		var page fieldPage[Out, A]

		if err := ctx.Err(); err != nil {
			return page, err
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return page, err
			}
		}

		out, err := fetch(ctx, requestFor(input, conv.RequestToken, token))
		if err != nil {
			return page, err
		}
		if out == nil {
			out = new(Out)
		}

		part, err := extract(out)
		if err != nil {
			return page, err
		}

		pages++
		page.out = out
		page.part = part
		page.token = tokenAt(out, conv.ResponseToken)

		logger.Debug("Fetched page",
			zap.Int("page", pages),
			zap.Bool("more", page.token != nil))
		return page, nil
	}

	next := func(page fieldPage[Out, A]) (any, bool) {
		if page.token == nil {
			return nil, false
		}
		if more != nil && !more(page.out) {
			return nil, false
		}
		return page.token, true
	}

	reduce := func(acc Acc, page fieldPage[Out, A]) Acc {
		return fold(acc, page.part)
	}

	return Walk(ctx, step, next, reduce, initial)
}

// requestFor returns a shallow copy of base with field set to token. A nil
// token leaves the copy as is, so a cursor preset by the caller is honoured
// on the first page.
func requestFor[In any](base *In, field string, token any) *In {
	in := new(In)
	*in = *base
	if token == nil {
		return in
	}
	// Detach the copied pointer first so the write cannot reach base.
	awsutil.SetValueAtPath(in, field, nil)
	awsutil.SetValueAtPath(in, field, token)
	return in
}

// tokenAt returns the cursor stored in field, or nil when it is absent.
// Nil pointers, empty strings and empty maps count as absent.
func tokenAt(out any, field string) any {
	vals, err := awsutil.ValuesAtPath(out, field)
	if err != nil || len(vals) == 0 {
		return nil
	}
	switch v := vals[0].(type) {
	case nil:
		return nil
	case *string:
		if v == nil || *v == "" {
			return nil
		}
	case string:
		if v == "" {
			return nil
		}
	}
	return vals[0]
}

// itemsAt returns the elements of the list stored in field. A missing or
// nil list yields no items.
func itemsAt[T any](out any, field string, keep func(T) bool) ([]T, error) {
	vals, err := awsutil.ValuesAtPath(out, field)
	if err != nil {
		return nil, &FieldError{Field: field, Err: err}
	}

	items := make([]T, 0, len(vals))
	for _, v := range vals {
		item, ok := v.(T)
		if !ok {
			return nil, &FieldError{Field: field, Err: fmt.Errorf("%w %T", ErrItemType, v)}
		}
		if keep != nil && !keep(item) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}
