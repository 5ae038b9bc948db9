// Package awsbind provides AWS SDK clients and secret retrieval to a whttp
// application through the container.
//
// Import the module from the application's root module and pick the clients
// it should provide:
//
//	func (appModule) Module() whttp.ModuleSpec {
//		return whttp.ModuleSpec{
//			Imports: []whttp.Module{awsbind.New(
//				awsbind.WithDynamoDB(),
//				awsbind.WithSecrets(),
//			)},
//			Controllers: []di.Class{{New: NewItemsController}},
//		}
//	}
//
// Controllers and providers then declare the clients as constructor
// dependencies:
//
//	func NewItemsController(dynamo *dynamodb.Client) *ItemsController
//
// # Regions
//
// Clients target the deployment region by default, read from AWS_REGION.
// Cross-region clients wrap their type to make the target explicit: a client
// registered with [ForPrimaryRegion] is injected as [Primary] and targets
// WHTTP_PRIMARY_REGION, one registered with [ForRegion] is injected as
// [InRegion]. [Client] registers any other client of the SDK:
//
//	awsbind.Client(func(cfg aws.Config) *awsbind.Primary[ssm.Client] {
//		return awsbind.NewPrimary(ssm.NewFromConfig(cfg))
//	}, awsbind.ForPrimaryRegion())
//
// # Secrets
//
// [WithSecrets] provides a cached Secrets Manager reader to the container,
// aliased as [serve.SecretReader]. For [serve.Runtime.Secret] the reader must
// live in the serve application's fx graph instead; wire it with
// [FxSecrets]:
//
//	serve.NewApp[Env](root, serve.WithFx(awsbind.FxSecrets()))
package awsbind
