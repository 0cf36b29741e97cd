// Package objectstore wraps common S3 object operations with retries,
// full-listing pagination and sentinel error mapping.
package objectstore

import (
	"net/url"
	"strings"
)

// Config configures a Store.
//
// Credentials and region come from the aws.Config handed to New (see
// settings.AWSConfig); Config only carries what is specific to the bucket.
//
// For S3-compatible stores (Wasabi, MinIO, DigitalOcean Spaces), set
// Endpoint and typically ForcePathStyle.
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Leave empty for AWS S3.
	// Examples:
	//   - MinIO: http://localhost:9000
	//   - Wasabi: https://s3.wasabisys.com
	Endpoint string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	ForcePathStyle bool

	// MaxKeys is the page size for listings.
	// Zero uses DefaultMaxKeys. Values over MaxAllowedKeys are clamped.
	MaxKeys int
}

// DefaultMaxKeys is the default page size for listings.
const DefaultMaxKeys = 1000

// MaxAllowedKeys is the maximum page size allowed by S3.
const MaxAllowedKeys = 1000

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Field: "Endpoint", Message: "endpoint must be an absolute URL"}
		}
	}

	if c.MaxKeys < 0 {
		return &ConfigError{Field: "MaxKeys", Message: "must not be negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "objectstore config: " + e.Field + ": " + e.Message
}

// clampMaxKeys applies defaults and limits to maxKeys values.
func clampMaxKeys(requested int) int {
	if requested <= 0 {
		return DefaultMaxKeys
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}
