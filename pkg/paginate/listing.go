package paginate

import (
	"context"

	"go.uber.org/zap"
)

// Listing is the result of a delimited listing: the objects of every page
// and the common prefixes of every page, each in arrival order.
type Listing[O, P any] struct {
	Objects  []O
	Prefixes []P
}

// ListingOptions tunes FetchListing.
type ListingOptions[O, P any] struct {
	// Objects is the response field holding objects. Defaults to Contents.
	Objects string

	// Prefixes is the response field holding common prefixes. Defaults to
	// CommonPrefixes.
	Prefixes string

	// ObjectFilter and PrefixFilter drop items before accumulation.
	ObjectFilter func(O) bool
	PrefixFilter func(P) bool

	RateLimit float64
	Logger    *zap.Logger
}

// Default field names of a delimited S3 listing.
const (
	DefaultObjectsField  = "Contents"
	DefaultPrefixesField = "CommonPrefixes"
)

type listingPage[O, P any] struct {
	objects  []O
	prefixes []P
}

// FetchListing lists every page with the ContinuationToken convention and
// accumulates objects and common prefixes independently. A page without
// one of the two lists contributes nothing to that list.
func FetchListing[O, P, In, Out any](
	ctx context.Context,
	fetch FetchFunc[In, Out],
	input *In,
	opts ListingOptions[O, P],
) (Listing[O, P], error) {
	objectsField := opts.Objects
	if objectsField == "" {
		objectsField = DefaultObjectsField
	}
	prefixesField := opts.Prefixes
	if prefixesField == "" {
		prefixesField = DefaultPrefixesField
	}

	extract := func(out *Out) (listingPage[O, P], error) {
		var page listingPage[O, P]
		var err error
		if page.objects, err = itemsAt(out, objectsField, opts.ObjectFilter); err != nil {
			return page, err
		}
		if page.prefixes, err = itemsAt(out, prefixesField, opts.PrefixFilter); err != nil {
			return page, err
		}
		return page, nil
	}
	fold := func(acc Listing[O, P], page listingPage[O, P]) Listing[O, P] {
		acc.Objects = append(acc.Objects, page.objects...)
		acc.Prefixes = append(acc.Prefixes, page.prefixes...)
		return acc
	}

	cfg := pageConfig{rateLimit: opts.RateLimit, logger: opts.Logger}
	initial := Listing[O, P]{Objects: []O{}, Prefixes: []P{}}
	return walkFields(ctx, fetch, input, ContinuationToken, nil, cfg, extract, fold, initial)
}
