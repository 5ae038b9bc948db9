package serve

import (
	"time"

	intervalexpr "github.com/MawKKe/integer-interval-expressions-go"
	env "github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment describes the configuration the harness reads from environment
// variables. Applications embed [BaseEnvironment] in their own environment
// struct to satisfy it and add application variables next to it.
type Environment interface {
	port() int
	serviceName() string
	readinessCheckPath() string
	logLevel() zapcore.Level
	otelExporter() string
	requestTimeout() time.Duration
	errorStatusCodes() string
	accessLogGroup() string
}

// BaseEnvironment implements [Environment] from WHTTP_-prefixed variables.
type BaseEnvironment struct {
	Port               int           `env:"WHTTP_PORT,required"`
	ServiceName        string        `env:"WHTTP_SERVICE_NAME,required"`
	ReadinessCheckPath string        `env:"WHTTP_READINESS_CHECK_PATH" envDefault:"/healthz"`
	LogLevel           zapcore.Level `env:"WHTTP_LOG_LEVEL" envDefault:"info"`
	OtelExporter       string        `env:"WHTTP_OTEL_EXPORTER" envDefault:"stdout"`
	RequestTimeout     time.Duration `env:"WHTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ErrorStatusCodes   string        `env:"WHTTP_ERROR_STATUS_CODES" envDefault:"500-599"`
	AccessLogGroup     string        `env:"WHTTP_ACCESS_LOG_GROUP"`
}

func (e BaseEnvironment) port() int                     { return e.Port }
func (e BaseEnvironment) serviceName() string           { return e.ServiceName }
func (e BaseEnvironment) readinessCheckPath() string    { return e.ReadinessCheckPath }
func (e BaseEnvironment) logLevel() zapcore.Level       { return e.LogLevel }
func (e BaseEnvironment) otelExporter() string          { return e.OtelExporter }
func (e BaseEnvironment) requestTimeout() time.Duration { return e.RequestTimeout }
func (e BaseEnvironment) errorStatusCodes() string      { return e.ErrorStatusCodes }
func (e BaseEnvironment) accessLogGroup() string        { return e.AccessLogGroup }

var _ Environment = BaseEnvironment{}

// ParseEnv returns a constructor that parses E from the process environment.
// It validates WHTTP_ERROR_STATUS_CODES against
// [DefaultRequiredErrorStatusCodes] so misconfiguration fails the boot, not
// the first incident.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (E, error) {
		var cfg E
		if err := env.Parse(&cfg); err != nil {
			return cfg, errors.Wrap(err, "failed to parse environment")
		}

		if err := ValidateErrorStatusCodes(cfg.errorStatusCodes(), DefaultRequiredErrorStatusCodes...); err != nil {
			return cfg, err
		}

		return cfg, nil
	}
}

// DefaultRequiredErrorStatusCodes lists the statuses the error classification
// must at least cover: 500 for unhandled pipeline errors and 504 for
// timeouts reported by a fronting proxy.
var DefaultRequiredErrorStatusCodes = []int{500, 504}

// ErrorStatusCodes classifies response statuses as failures for the access
// log.
type ErrorStatusCodes struct {
	expr intervalexpr.Expression
}

// ParseErrorStatusCodes parses an interval expression such as "500,504" or
// "500-599" into a status classifier.
func ParseErrorStatusCodes(expr string) (ErrorStatusCodes, error) {
	parsed, err := intervalexpr.ParseExpression(expr)
	if err != nil {
		return ErrorStatusCodes{}, errors.Wrapf(err, "failed to parse error status codes %q", expr)
	}

	return ErrorStatusCodes{expr: parsed}, nil
}

// Matches reports whether status is classified as a failure.
func (c ErrorStatusCodes) Matches(status int) bool {
	return c.expr.Matches(status)
}

// ValidateErrorStatusCodes parses expr and checks that every required status
// code is matched by it.
func ValidateErrorStatusCodes(expr string, required ...int) error {
	parsed, err := ParseErrorStatusCodes(expr)
	if err != nil {
		return err
	}

	var missing []int
	for _, code := range required {
		if !parsed.Matches(code) {
			missing = append(missing, code)
		}
	}

	if len(missing) > 0 {
		return errors.Newf(
			"error status codes %q do not match all required codes, missing: %v (recommended value: %q)",
			expr, missing, "500-599")
	}

	return nil
}
