package awsbind

import (
	"context"
	"time"

	"github.com/advdv/whttp"
	"github.com/advdv/whttp/di"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const configTimeout = 10 * time.Second

// Module provides AWS SDK clients through the application container. Import
// it from a module and pick clients with the With options or [Client].
type Module struct {
	regions   *Regions
	tp        trace.TracerProvider
	prop      propagation.TextMapPropagator
	providers []di.Provider
}

// Option configures the module.
type Option func(*Module)

// New builds the module. Without client options it only provides the
// aws.Config and the parsed [Regions].
func New(opts ...Option) *Module {
	m := &Module{}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Module declares the providers.
func (m *Module) Module() whttp.ModuleSpec {
	providers := make([]di.Provider, 0, len(m.providers)+2)

	if m.regions != nil {
		providers = append(providers, di.Value{Provide: di.Type[Regions](), Value: *m.regions})
	} else {
		providers = append(providers, di.Provide(ParseRegions))
	}

	providers = append(providers, di.Provide(m.loadConfig,
		di.Opt(di.Type[trace.TracerProvider]()),
		di.Opt(di.Type[propagation.TextMapPropagator]()),
	))
	providers = append(providers, m.providers...)

	return whttp.ModuleSpec{Providers: providers}
}

// loadConfig loads the default AWS configuration. Calls are traced when the
// container holds a tracer provider, as it does under serve.NewApp, or when
// [WithTracing] supplies one.
func (m *Module) loadConfig(ctx context.Context, tp trace.TracerProvider, prop propagation.TextMapPropagator) (aws.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, configTimeout)
	defer cancel()

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, errors.Wrap(err, "load aws configuration")
	}

	if m.tp != nil {
		tp, prop = m.tp, m.prop
	}

	if tp != nil && prop != nil {
		otelaws.AppendMiddlewares(&cfg.APIOptions,
			otelaws.WithTracerProvider(tp),
			otelaws.WithTextMapPropagator(prop),
		)
	}

	return cfg, nil
}

// clientOptions holds per-client registration settings.
type clientOptions struct {
	region Region
}

// ClientOption adjusts how one client is constructed.
type ClientOption func(*clientOptions)

// ForPrimaryRegion constructs the client against the primary deployment
// region. The factory should return *Primary[T] to make that explicit in
// the dependency's type.
func ForPrimaryRegion() ClientOption {
	return func(o *clientOptions) { o.region = PrimaryRegion() }
}

// ForRegion constructs the client against a specific fixed region. The
// factory should return *InRegion[T].
func ForRegion(region string) ClientOption {
	return func(o *clientOptions) { o.region = FixedRegion(region) }
}

// Client registers an AWS client built by the factory from the module's
// configuration, provided under the factory's return type. The configuration
// targets the deployment region unless a [ClientOption] says otherwise.
//
//	awsbind.Client(func(cfg aws.Config) *dynamodb.Client {
//		return dynamodb.NewFromConfig(cfg)
//	})
func Client[T any](factory func(aws.Config) *T, opts ...ClientOption) Option {
	options := clientOptions{region: LocalRegion()}
	for _, opt := range opts {
		opt(&options)
	}

	return func(m *Module) {
		m.providers = append(m.providers, di.Provide(func(cfg aws.Config, regions Regions) *T {
			clientCfg := cfg.Copy()
			if region := options.region.resolve(regions); region != "" {
				clientCfg.Region = region
			}

			return factory(clientCfg)
		}))
	}
}

// WithRegions fixes the region configuration instead of parsing it from the
// environment.
func WithRegions(local, primary string) Option {
	return func(m *Module) {
		m.regions = &Regions{Local: local, Primary: primary}
	}
}

// WithTracing instruments every AWS call with the given tracer instead of
// the one discovered from the container.
func WithTracing(tp trace.TracerProvider, prop propagation.TextMapPropagator) Option {
	return func(m *Module) {
		m.tp, m.prop = tp, prop
	}
}

// WithDynamoDB provides a DynamoDB client in the deployment region.
func WithDynamoDB() Option {
	return Client(func(cfg aws.Config) *dynamodb.Client { return dynamodb.NewFromConfig(cfg) })
}

// WithS3 provides an S3 client in the deployment region.
func WithS3() Option {
	return Client(func(cfg aws.Config) *s3.Client { return s3.NewFromConfig(cfg) })
}

// WithSQS provides an SQS client in the deployment region.
func WithSQS() Option {
	return Client(func(cfg aws.Config) *sqs.Client { return sqs.NewFromConfig(cfg) })
}

// WithSQSIn provides an SQS client pinned to the given region, wrapped in
// [InRegion].
func WithSQSIn(region string) Option {
	return Client(func(cfg aws.Config) *InRegion[sqs.Client] {
		return NewInRegion(sqs.NewFromConfig(cfg), region)
	}, ForRegion(region))
}

// WithSSMPrimary provides an SSM client in the primary deployment region,
// wrapped in [Primary].
func WithSSMPrimary() Option {
	return Client(func(cfg aws.Config) *Primary[ssm.Client] {
		return NewPrimary(ssm.NewFromConfig(cfg))
	}, ForPrimaryRegion())
}

// WithProvider adds an arbitrary provider to the module, for dependencies
// the With options do not cover.
func WithProvider(p di.Provider) Option {
	return func(m *Module) {
		m.providers = append(m.providers, p)
	}
}
