package serve

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

// mockSecretReader implements SecretReader for testing.
type mockSecretReader struct {
	secrets map[string]string
	err     error
}

func (m *mockSecretReader) GetSecretString(_ context.Context, secretID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	secret, ok := m.secrets[secretID]
	if !ok {
		return "", errors.Errorf("secret %q not found", secretID)
	}
	return secret, nil
}

func TestRuntime_Secret(t *testing.T) {
	tests := []struct {
		name      string
		secrets   map[string]string
		readerErr error
		secretID  string
		jsonPath  []string
		want      string
		wantErr   string
	}{
		{
			name: "read raw string secret",
			secrets: map[string]string{
				"my-api-key": "secret-key-value",
			},
			secretID: "my-api-key",
			want:     "secret-key-value",
		},
		{
			name: "read JSON secret with simple path",
			secrets: map[string]string{
				"my-db-creds": `{"database": {"password": "secret123"}}`,
			},
			secretID: "my-db-creds",
			jsonPath: []string{"database.password"},
			want:     "secret123",
		},
		{
			name: "read JSON secret with nested array",
			secrets: map[string]string{
				"my-config": `{"items": [{"name": "first"}, {"name": "second"}]}`,
			},
			secretID: "my-config",
			jsonPath: []string{"items.1.name"},
			want:     "second",
		},
		{
			name: "path not found in JSON secret",
			secrets: map[string]string{
				"my-secret": `{"foo": "bar"}`,
			},
			secretID: "my-secret",
			jsonPath: []string{"missing.path"},
			wantErr:  `secret path "missing.path" not found`,
		},
		{
			name:      "secret reader error",
			secrets:   map[string]string{},
			readerErr: errors.New("AWS error"),
			secretID:  "any-secret",
			wantErr:   "AWS error",
		},
		{
			name: "too many jsonPath arguments",
			secrets: map[string]string{
				"my-secret": `{"foo": "bar"}`,
			},
			secretID: "my-secret",
			jsonPath: []string{"one", "two"},
			wantErr:  "at most one jsonPath argument",
		},
		{
			name: "read numeric value from JSON as string",
			secrets: map[string]string{
				"my-config": `{"port": 5432}`,
			},
			secretID: "my-config",
			jsonPath: []string{"port"},
			want:     "5432",
		},
		{
			name: "empty jsonPath returns raw secret",
			secrets: map[string]string{
				"my-secret": `{"foo": "bar"}`,
			},
			secretID: "my-secret",
			jsonPath: []string{""},
			want:     `{"foo": "bar"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockSecretReader{
				secrets: tt.secrets,
				err:     tt.readerErr,
			}

			rt := &Runtime[BaseEnvironment]{secrets: reader}
			ctx := context.Background()

			got, err := rt.Secret(ctx, tt.secretID, tt.jsonPath...)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error %q does not contain %q", err.Error(), tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRuntime_Secret_NoReaderConfigured(t *testing.T) {
	rt := &Runtime[BaseEnvironment]{}

	_, err := rt.Secret(context.Background(), "any-secret")
	if err == nil {
		t.Fatal("expected error when secret reader not configured")
	}
	if !strings.Contains(err.Error(), "secret reader not configured") {
		t.Errorf("unexpected error: %v", err)
	}
}
