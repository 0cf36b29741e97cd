// Package paginate drives paged AWS listing operations to exhaustion.
//
// Walk is the generic cursor-following loop: fetch a page, fold it into an
// accumulator, derive the next request, repeat. Pages are fetched strictly
// one at a time; the next request is never built before the current page
// has been folded.
//
// On top of Walk, Fetch and its named variants address SDK request and
// response structs by field name, covering the continuation conventions
// used across AWS services:
//
//	Position           position          -> position
//	NextToken          NextToken         -> NextToken
//	LowerNextToken     nextToken         -> nextToken
//	Marker             Marker            -> NextMarker
//	ContinuationToken  ContinuationToken -> NextContinuationToken
//	ExclusiveStartKey  ExclusiveStartKey -> LastEvaluatedKey
//
// Termination depends on the upstream eventually omitting its continuation
// value, or on a caller-supplied continuation predicate returning false.
package paginate

import "context"

// Walk calls fetch with the zero request, folds each response into the
// accumulator with reduce, and keeps going while next returns a request
// and true.
//
// A fetch error stops the walk; the error is returned unchanged together
// with the zero accumulator, never a partial one.
func Walk[Req, Resp, Acc any](
	ctx context.Context,
	fetch func(ctx context.Context, req Req) (Resp, error),
	next func(resp Resp) (Req, bool),
	reduce func(acc Acc, resp Resp) Acc,
	initial Acc,
) (Acc, error) {
	var (
		zero Acc
		req  Req
	)
	acc := initial

	for {
		resp, err := fetch(ctx, req)
		if err != nil {
			return zero, err
		}

		acc = reduce(acc, resp)

		nextReq, ok := next(resp)
		if !ok {
			return acc, nil
		}
		req = nextReq
	}
}
