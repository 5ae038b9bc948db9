package awsbind

import (
	"context"

	"github.com/advdv/whttp/di"
	"github.com/advdv/whttp/serve"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"
	"github.com/cockroachdb/errors"
)

// SecretsReader reads secrets from AWS Secrets Manager through an in-memory
// cache. It implements [serve.SecretReader].
type SecretsReader struct {
	cache *secretcache.Cache
}

// NewSecretsReader builds a reader on the given configuration.
func NewSecretsReader(cfg aws.Config) (*SecretsReader, error) {
	client := secretsmanager.NewFromConfig(cfg)
	cache, err := secretcache.New(func(c *secretcache.Cache) {
		c.Client = client
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create secret cache")
	}

	return &SecretsReader{cache: cache}, nil
}

// GetSecretString retrieves a secret value, served from cache when fresh.
func (r *SecretsReader) GetSecretString(ctx context.Context, secretID string) (string, error) {
	secret, err := r.cache.GetSecretStringWithContext(ctx, secretID)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get secret %q", secretID)
	}

	return secret, nil
}

var _ serve.SecretReader = (*SecretsReader)(nil)

// WithSecrets provides the reader under its own type, aliased as
// [serve.SecretReader].
func WithSecrets() Option {
	return func(m *Module) {
		m.providers = append(m.providers,
			di.Provide(NewSecretsReader),
			di.Existing{Provide: di.Type[serve.SecretReader](), UseExisting: di.Type[*SecretsReader]()},
		)
	}
}
