package algolia

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

// AWSSecrets returns a FetchSecrets function that retrieves Algolia credentials
// from AWS Secrets Manager. The secret is expected to be stored at the path
// "{environment}/algolia" and contain JSON with app_id and write_api_key fields.
func AWSSecrets(ctx context.Context, client SecretsManagerClient, env string) FetchSecrets {
	return fetchSecret(ctx, client, fmt.Sprintf("%s/algolia", env), "path")
}

// AWSSecretsFromARN returns a FetchSecrets function that retrieves Algolia credentials
// from AWS Secrets Manager using the provided secret ARN.
func AWSSecretsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchSecrets {
	return fetchSecret(ctx, client, secretArn, "ARN")
}

func fetchSecret(ctx context.Context, client SecretsManagerClient, secretID, kind string) FetchSecrets {
	return func() (Secrets, error) {
		result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		if err != nil {
			return Secrets{}, errors.Wrapf(err, "failed to get secret from AWS Secrets Manager at %s %s", kind, secretID)
		}

		if result.SecretString == nil {
			return Secrets{}, errors.Newf("secret at %s %s has no string value", kind, secretID)
		}

		var secrets Secrets
		if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &secrets); err != nil {
			return Secrets{}, errors.Wrapf(err, "failed to unmarshal secret JSON from %s %s", kind, secretID)
		}

		return secrets, nil
	}
}
