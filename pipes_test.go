package whttp_test

import (
	"context"
	"testing"

	"github.com/advdv/whttp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseIntPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Name: "id", Source: whttp.SourcePath}

	got, err := whttp.ParseInt().Transform(ctx, "42", meta)
	require.NoError(t, err)
	require.Equal(t, int64(42), got)

	_, err = whttp.ParseInt().Transform(ctx, "abc", meta)
	require.Equal(t, whttp.CodeBadRequest, whttp.CodeOf(err))
	require.Contains(t, err.Error(), `argument "id" must be an integer`)

	_, err = whttp.ParseInt().Transform(ctx, 99, meta)
	require.Contains(t, err.Error(), `argument "id" must be a string`)
}

func TestParseFloatPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Name: "ratio", Source: whttp.SourceQuery}

	got, err := whttp.ParseFloat().Transform(ctx, "3.14", meta)
	require.NoError(t, err)
	require.Equal(t, 3.14, got)

	_, err = whttp.ParseFloat().Transform(ctx, "x", meta)
	require.Equal(t, whttp.CodeBadRequest, whttp.CodeOf(err))
}

func TestParseBoolPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Name: "verbose", Source: whttp.SourceQuery}

	for _, raw := range []string{"true", "1", "T"} {
		got, err := whttp.ParseBool().Transform(ctx, raw, meta)
		require.NoError(t, err)
		require.Equal(t, true, got)
	}

	_, err := whttp.ParseBool().Transform(ctx, "nope", meta)
	require.Equal(t, whttp.CodeBadRequest, whttp.CodeOf(err))
}

func TestParseUUIDPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Name: "id", Source: whttp.SourcePath}

	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	got, err := whttp.ParseUUID().Transform(ctx, id.String(), meta)
	require.NoError(t, err)
	require.Equal(t, id, got)

	_, err = whttp.ParseUUID().Transform(ctx, "zzz", meta)
	require.Equal(t, whttp.CodeBadRequest, whttp.CodeOf(err))
	require.Contains(t, err.Error(), "must be a uuid")
}

func TestDefaultPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Name: "page", Source: whttp.SourceQuery}

	got, err := whttp.Default("1").Transform(ctx, nil, meta)
	require.NoError(t, err)
	require.Equal(t, "1", got)

	got, err = whttp.Default("1").Transform(ctx, "", meta)
	require.NoError(t, err)
	require.Equal(t, "1", got)

	got, err = whttp.Default("1").Transform(ctx, "7", meta)
	require.NoError(t, err)
	require.Equal(t, "7", got)

	// only nil and the empty string trigger the default, zero values don't.
	got, err = whttp.Default("1").Transform(ctx, 0, meta)
	require.NoError(t, err)
	require.Equal(t, 0, got)
}

type registration struct {
	Email string `json:"email" validate:"required,email"`
	Age   int    `json:"age"   validate:"gte=18"`
}

func TestValidationPipe(t *testing.T) {
	ctx, meta := context.Background(), whttp.ArgumentMeta{Source: whttp.SourceBody}
	pipe := whttp.Validation()

	t.Run("should pass a valid struct through untouched", func(t *testing.T) {
		in := &registration{Email: "ada@example.org", Age: 36}
		got, err := pipe.Transform(ctx, in, meta)
		require.NoError(t, err)
		require.Same(t, in, got)
	})

	t.Run("should report each failed rule as a violation", func(t *testing.T) {
		_, err := pipe.Transform(ctx, &registration{Email: "not-an-email", Age: 12}, meta)
		require.Equal(t, whttp.CodeBadRequest, whttp.CodeOf(err))

		var herr *whttp.Error
		require.ErrorAs(t, err, &herr)

		body, ok := herr.Body().(map[string]any)
		require.True(t, ok)

		violations, ok := body["violations"].([]whttp.FieldViolation)
		require.True(t, ok)
		require.Len(t, violations, 2)
		require.Equal(t, "Email", violations[0].Field)
		require.Equal(t, "email", violations[0].Rule)
		require.Equal(t, "Age", violations[1].Field)
		require.Equal(t, "gte", violations[1].Rule)
	})

	t.Run("should pass non-struct values through", func(t *testing.T) {
		got, err := pipe.Transform(ctx, "plain", meta)
		require.NoError(t, err)
		require.Equal(t, "plain", got)
	})

	t.Run("should pass nil through", func(t *testing.T) {
		got, err := pipe.Transform(ctx, nil, meta)
		require.NoError(t, err)
		require.Nil(t, got)

		var typed *registration
		got, err = pipe.Transform(ctx, typed, meta)
		require.NoError(t, err)
		require.Equal(t, typed, got)
	})
}
