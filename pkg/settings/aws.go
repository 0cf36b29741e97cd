package settings

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"go.uber.org/zap"
)

// DefaultAWSRegion is the fallback region for AWS when none is resolved.
const DefaultAWSRegion = "us-east-1"

// RegionSource looks up the region of the running instance.
// *imds.Client satisfies it.
type RegionSource interface {
	GetRegion(ctx context.Context, in *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

var _ RegionSource = (*imds.Client)(nil)

// AWSConfig builds the SDK configuration.
//
// Authentication priority (AWS SDK v2 default chain):
//  1. Explicit AccessKeyID/SecretAccessKey (if provided)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials file (~/.aws/credentials)
//  4. Shared config file (~/.aws/config) with profile
//  5. EC2 instance metadata / ECS task role / EKS IRSA
//
// Region: explicit, then environment/profile, then the instance metadata
// service when IMDSRegion is set, then us-east-1 for AWS endpoints. A
// custom endpoint gets no default region.
func AWSConfig(ctx context.Context, a AWS, logger *zap.Logger) (aws.Config, error) {
	var src RegionSource
	if a.IMDSRegion {
		src = imds.New(imds.Options{})
	}
	return awsConfig(ctx, a, src, logger)
}

func awsConfig(ctx context.Context, a AWS, src RegionSource, logger *zap.Logger) (aws.Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if set; let the SDK resolve from env/profile first.
	if a.Region != "" {
		opts = append(opts, config.WithRegion(a.Region))
	}
	if a.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(a.Profile))
	}
	if a.AccessKeyID != "" && a.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(a.AccessKeyID, a.SecretAccessKey, a.SessionToken),
		))
	}
	if a.Endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(a.Endpoint))
	}
	if a.SDKMaxAttempts > 0 {
		opts = append(opts, config.WithRetryMaxAttempts(a.SDKMaxAttempts))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	cfg.Region = resolveRegion(ctx, a.Endpoint, cfg.Region, src, logger)
	return cfg, nil
}

// resolveRegion applies the fallbacks after SDK loading. sdkRegion already
// reflects an explicit region, the environment and the shared profile.
func resolveRegion(ctx context.Context, endpoint, sdkRegion string, src RegionSource, logger *zap.Logger) string {
	if sdkRegion != "" {
		return sdkRegion
	}

	if src != nil {
		out, err := src.GetRegion(ctx, &imds.GetRegionInput{})
		if err == nil && out.Region != "" {
			return out.Region
		}
		logger.Debug("Instance metadata region lookup failed", zap.Error(err))
	}

	// Only default for AWS (no custom endpoint)
	if endpoint == "" {
		return DefaultAWSRegion
	}

	// S3-compatible: no default, provider may not need region
	return ""
}
