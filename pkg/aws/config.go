package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"

	"timesheet.service/internal/config"
)

// NewAWSConfig loads the AWS configuration. Local development uses static test credentials
// so requests can be routed to LocalStack.
func NewAWSConfig(ctx context.Context, appConfig config.Config) (aws.Config, error) {
	if appConfig.IsLocalDev {
		log.Info().Str("endpoint", appConfig.AWSEndpoint).Msg("Local development mode detected. Routing AWS calls to LocalStack.")
		return awsConfig.LoadDefaultConfig(ctx,
			awsConfig.WithRegion(appConfig.AWSRegion),
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
		)
	}

	// Outside local dev the standard credential chain applies (e.g. IAM role for service accounts).
	log.Info().Msg("Production mode detected. Using standard AWS credential chain.")
	return awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(appConfig.AWSRegion))
}

// localEndpoint is the LocalStack base URL in local dev, nil otherwise.
func localEndpoint(appConfig config.Config) *string {
	if !appConfig.IsLocalDev || appConfig.AWSEndpoint == "" {
		return nil
	}
	return aws.String(appConfig.AWSEndpoint)
}

// NewSQSClient creates the queue client used by the API publisher and the workers.
func NewSQSClient(awsCfg aws.Config, appConfig config.Config) *sqs.Client {
	endpoint := localEndpoint(appConfig)
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
}

// NewSESClient creates the client the email worker sends pay-run summaries with.
func NewSESClient(awsCfg aws.Config, appConfig config.Config) *ses.Client {
	endpoint := localEndpoint(appConfig)
	return ses.NewFromConfig(awsCfg, func(o *ses.Options) {
		if endpoint != nil {
			o.BaseEndpoint = endpoint
		}
	})
}
