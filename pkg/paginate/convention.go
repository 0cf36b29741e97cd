package paginate

import (
	"errors"
	"fmt"
)

// Convention names the continuation fields of one pagination style.
type Convention struct {
	// RequestToken is the request field that resumes a listing.
	RequestToken string

	// ResponseToken is the response field holding the next cursor.
	// Its absence ends the listing.
	ResponseToken string

	// Items is the default response field holding the page's items.
	// Empty means the caller must name it.
	Items string
}

// Continuation conventions found across AWS service APIs.
var (
	Position = Convention{RequestToken: "position", ResponseToken: "position"}

	NextToken = Convention{RequestToken: "NextToken", ResponseToken: "NextToken"}

	LowerNextToken = Convention{RequestToken: "nextToken", ResponseToken: "nextToken"}

	Marker = Convention{RequestToken: "Marker", ResponseToken: "NextMarker"}

	ContinuationToken = Convention{
		RequestToken:  "ContinuationToken",
		ResponseToken: "NextContinuationToken",
		Items:         "Contents",
	}

	ExclusiveStartKey = Convention{
		RequestToken:  "ExclusiveStartKey",
		ResponseToken: "LastEvaluatedKey",
		Items:         "Items",
	}
)

// Errors returned before any page is fetched, or while decoding a page.
var (
	// ErrNoItemsField is returned when neither the convention nor the
	// options name the items field.
	ErrNoItemsField = errors.New("items field not specified")

	// ErrNoTokenField is returned for a convention without token fields.
	ErrNoTokenField = errors.New("continuation fields not specified")

	// ErrItemType is returned when a page item is not of the requested type.
	ErrItemType = errors.New("unexpected item type")
)

// FieldError reports a problem with a named response field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("paginate: field %q: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func (c Convention) validate() error {
	if c.RequestToken == "" || c.ResponseToken == "" {
		return ErrNoTokenField
	}
	return nil
}
