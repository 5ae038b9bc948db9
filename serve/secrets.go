package serve

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// SecretReader abstracts secret retrieval for testability and flexibility.
// The awsbind package provides an implementation backed by AWS Secrets
// Manager.
type SecretReader interface {
	GetSecretString(ctx context.Context, secretID string) (string, error)
}

// secretFromReader retrieves a secret value, optionally extracting a JSON
// path. If jsonPath is provided, the secret is parsed as JSON and the path is
// extracted. If jsonPath is empty, the raw secret string is returned.
func secretFromReader(ctx context.Context, reader SecretReader, secretID string, jsonPath ...string) (string, error) {
	if len(jsonPath) > 1 {
		return "", errors.New("serve: Secret accepts at most one jsonPath argument")
	}

	secret, err := reader.GetSecretString(ctx, secretID)
	if err != nil {
		return "", err
	}

	if len(jsonPath) == 0 || jsonPath[0] == "" {
		return secret, nil
	}

	path := jsonPath[0]
	result := gjson.Get(secret, path)
	if !result.Exists() {
		return "", errors.Errorf("secret path %q not found in secret %q", path, secretID)
	}

	return result.String(), nil
}
