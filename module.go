package whttp

import (
	"context"

	"github.com/advdv/whttp/di"
)

// Module declares one unit of application composition: the modules it
// imports, the providers it contributes to the container and the controllers
// it mounts. Modules are deduplicated by identity, so implement the interface
// on a pointer type when a module is imported from several places.
type Module interface {
	Module() ModuleSpec
}

// DynamicImport produces a module during bootstrap, for imports that need
// configuration or I/O before they can declare themselves.
type DynamicImport func(ctx context.Context) (Module, error)

// ModuleSpec is the declaration returned by a module.
type ModuleSpec struct {
	Imports        []Module
	DynamicImports []DynamicImport
	Providers      []di.Provider
	Controllers    []di.Class
}

// Controller is implemented by types that mount routes. The application
// instantiates controllers through the container, so their constructors
// receive dependencies like any other provider.
type Controller interface {
	Controller() *ControllerSpec
}

// OnModuleInit is called on every module and controller instance after all
// routes are registered, in registration order.
type OnModuleInit interface {
	OnModuleInit(ctx context.Context) error
}

// OnApplicationBootstrap is called after every OnModuleInit hook has
// completed, just before the application starts accepting requests.
type OnApplicationBootstrap interface {
	OnApplicationBootstrap(ctx context.Context) error
}

// OnModuleDestroy is called during shutdown, in reverse registration order.
type OnModuleDestroy interface {
	OnModuleDestroy(ctx context.Context) error
}
