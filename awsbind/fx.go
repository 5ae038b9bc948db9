package awsbind

import (
	"context"

	"github.com/advdv/whttp/serve"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// FxSecrets provides the cached secret reader to a serve application's fx
// graph so [serve.Runtime.Secret] can resolve secrets:
//
//	serve.NewApp[Env](root, serve.WithFx(awsbind.FxSecrets()))
func FxSecrets() fx.Option {
	return fx.Options(
		fx.Provide(loadFxConfig),
		fx.Provide(NewSecretsReader),
		fx.Provide(func(r *SecretsReader) serve.SecretReader { return r }),
	)
}

// loadFxConfig loads the AWS configuration for the fx graph, instrumented
// against the graph's tracer.
func loadFxConfig(tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(context.Background(), configTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, errors.Wrap(err, "load aws configuration")
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(tp),
		otelaws.WithTextMapPropagator(prop),
	)

	return cfg, nil
}
