package awsbind

import (
	env "github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Regions identifies the AWS regions the module's clients target. Local is
// the deployment region; Primary points at the primary deployment region in
// multi-region setups and may be empty.
type Regions struct {
	Local   string `env:"AWS_REGION"`
	Primary string `env:"WHTTP_PRIMARY_REGION"`
}

// ParseRegions reads the region configuration from the environment.
func ParseRegions() (Regions, error) {
	var regions Regions
	if err := env.Parse(&regions); err != nil {
		return regions, errors.Wrap(err, "failed to parse region configuration")
	}

	return regions, nil
}

// Region selects which configured region a client targets.
type Region interface {
	resolve(r Regions) string
}

type localRegion struct{}

func (localRegion) resolve(r Regions) string { return r.Local }

// LocalRegion targets the deployment region (AWS_REGION).
func LocalRegion() Region { return localRegion{} }

type primaryRegion struct{}

func (primaryRegion) resolve(r Regions) string { return r.Primary }

// PrimaryRegion targets the primary deployment region
// (WHTTP_PRIMARY_REGION). Use it for operations that must reach the primary
// deployment from a replica region.
func PrimaryRegion() Region { return primaryRegion{} }

type fixedRegion string

func (r fixedRegion) resolve(Regions) string { return string(r) }

// FixedRegion targets a specific region regardless of the environment.
func FixedRegion(region string) Region { return fixedRegion(region) }

// Primary wraps an AWS client for the primary deployment region, making the
// cross-region target explicit in the dependency's type.
//
// Injection:
//
//	func NewHandlers(ssm *awsbind.Primary[ssm.Client]) *Handlers
//
// Usage:
//
//	h.ssm.Client.GetParameter(ctx, ...)
type Primary[T any] struct {
	Client *T
}

// NewPrimary wraps an AWS client configured for the primary region.
func NewPrimary[T any](client *T) *Primary[T] {
	return &Primary[T]{Client: client}
}

// InRegion wraps an AWS client configured for a specific fixed region.
//
// Injection:
//
//	func NewHandlers(sqs *awsbind.InRegion[sqs.Client]) *Handlers
//
// Usage:
//
//	h.sqs.Client.SendMessage(ctx, ...)
//	region := h.sqs.Region
type InRegion[T any] struct {
	Client *T
	Region string
}

// NewInRegion wraps an AWS client configured for the given fixed region.
func NewInRegion[T any](client *T, region string) *InRegion[T] {
	return &InRegion[T]{Client: client, Region: region}
}
