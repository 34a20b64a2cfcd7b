package ncbi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSCredentials returns a FetchCredentials function that reads NCBI
// credentials from AWS Secrets Manager at "{env}/ncbi". The secret holds
// JSON with email, api_key and tool fields.
func AWSCredentials(ctx context.Context, client SecretsManagerClient, env string) FetchCredentials {
	return awsCredentials(ctx, client, fmt.Sprintf("%s/ncbi", env), "at path")
}

// AWSCredentialsFromARN returns a FetchCredentials function that reads NCBI
// credentials from the AWS Secrets Manager secret with the given ARN.
func AWSCredentialsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchCredentials {
	return awsCredentials(ctx, client, secretArn, "with ARN")
}

func awsCredentials(ctx context.Context, client SecretsManagerClient, secretID, desc string) FetchCredentials {
	return func() (Credentials, error) {
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return Credentials{}, errors.Wrapf(err, "failed to get secret from AWS Secrets Manager %s %s", desc, secretID)
		}

		if result.SecretString == nil {
			return Credentials{}, errors.Newf("secret %s %s has no string value", desc, secretID)
		}

		var creds Credentials
		if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &creds); err != nil {
			return Credentials{}, errors.Wrapf(err, "failed to unmarshal secret JSON %s %s", desc, secretID)
		}

		return creds, nil
	}
}
