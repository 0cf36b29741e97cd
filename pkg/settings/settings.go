// Package settings loads awsbridge configuration from defaults, an optional
// YAML file and AWSBRIDGE_* environment variables, and turns it into the
// values the other packages consume: an aws.Config, a zap.Logger and a
// retry.Config.
package settings

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/3leaps/awsbridge/pkg/objectstore"
	"github.com/3leaps/awsbridge/pkg/retry"
)

// EnvPrefix prefixes every environment override, e.g. AWSBRIDGE_AWS_REGION.
const EnvPrefix = "AWSBRIDGE"

// ConfigName is the file name (without extension) searched for when Load
// is given no explicit path.
const ConfigName = "awsbridge"

// Status filter keywords accepted in retry.statuses.
const (
	StatusesAny  = "any"
	StatusesNone = "none"
)

// Settings is the decoded configuration.
type Settings struct {
	AWS     AWS     `mapstructure:"aws"`
	Retry   Retry   `mapstructure:"retry"`
	Paging  Paging  `mapstructure:"paging"`
	Logging Logging `mapstructure:"logging"`
	S3      S3      `mapstructure:"s3"`
}

// AWS selects credentials, region and endpoint.
type AWS struct {
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`

	// IMDSRegion asks the EC2 instance metadata service for the region
	// when none is configured.
	IMDSRegion bool `mapstructure:"imds_region"`

	// SDKMaxAttempts overrides the SDK's own retryer. Set it to 1 to leave
	// all retrying to awsbridge. Zero keeps the SDK default.
	SDKMaxAttempts int `mapstructure:"sdk_max_attempts"`
}

// Retry configures the retry schedule.
type Retry struct {
	Name   string          `mapstructure:"name"`
	Delays []time.Duration `mapstructure:"delays"`

	// Statuses lists retryable HTTP statuses. Empty means 429 only;
	// "any" disables filtering; "none" disables retries.
	Statuses []string `mapstructure:"statuses"`
}

// Paging configures listings.
type Paging struct {
	RateLimit float64 `mapstructure:"rate_limit"`
}

// Logging configures the zap logger.
type Logging struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// S3 configures the object store.
type S3 struct {
	Bucket         string `mapstructure:"bucket"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	MaxKeys        int    `mapstructure:"max_keys"`
}

// Load reads configuration. path names a YAML file; when empty, an
// awsbridge.yaml in the working directory is used if present.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.session_token", "")
	v.SetDefault("aws.imds_region", false)
	v.SetDefault("aws.sdk_max_attempts", 0)

	v.SetDefault("retry.name", retry.DefaultPolicyName)
	v.SetDefault("retry.delays", []string{"100ms", "200ms", "400ms"})
	v.SetDefault("retry.statuses", []string{})

	v.SetDefault("paging.rate_limit", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.force_path_style", false)
	v.SetDefault("s3.max_keys", objectstore.DefaultMaxKeys)
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToSliceHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

// stringToSliceHook splits comma-separated strings, as set through the
// environment, into slices. Blank input yields an empty slice.
func stringToSliceHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}

// Validate checks field combinations Load cannot express through types.
func (s *Settings) Validate() error {
	if (s.AWS.AccessKeyID != "") != (s.AWS.SecretAccessKey != "") {
		return &Error{Field: "aws.access_key_id", Message: "access key ID and secret access key must be provided together"}
	}
	if s.AWS.SDKMaxAttempts < 0 {
		return &Error{Field: "aws.sdk_max_attempts", Message: "must not be negative"}
	}
	if s.Paging.RateLimit < 0 {
		return &Error{Field: "paging.rate_limit", Message: "must not be negative"}
	}
	if _, err := s.Retry.StatusFilter(); err != nil {
		return err
	}
	return nil
}

// Error reports an invalid setting.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "settings: " + e.Field + ": " + e.Message
}

// StatusFilter converts Statuses. A nil filter selects the retry default.
func (r Retry) StatusFilter() (*retry.StatusFilter, error) {
	if len(r.Statuses) == 0 {
		return nil, nil
	}
	if len(r.Statuses) == 1 {
		switch strings.ToLower(r.Statuses[0]) {
		case StatusesAny:
			return retry.AnyStatus(), nil
		case StatusesNone:
			return retry.StatusCodes(), nil
		}
	}

	codes := make([]int, 0, len(r.Statuses))
	for _, s := range r.Statuses {
		c, err := strconv.Atoi(s)
		if err != nil || c < 100 || c > 599 {
			return nil, &Error{Field: "retry.statuses", Message: fmt.Sprintf("invalid HTTP status %q", s)}
		}
		codes = append(codes, c)
	}
	return retry.StatusCodes(codes...), nil
}

// ObjectStore returns the bucket settings for objectstore.New.
func (s *Settings) ObjectStore() objectstore.Config {
	return objectstore.Config{
		Bucket:         s.S3.Bucket,
		Endpoint:       s.AWS.Endpoint,
		ForcePathStyle: s.S3.ForcePathStyle,
		MaxKeys:        s.S3.MaxKeys,
	}
}
