// Package dvclient provides the primary entry point for constructing a
// Dataverse Web API client that implements the dataverse.Client
// interface.
//
// It layers configuration, HTTP transport and authentication on top of
// the resource interfaces and types defined in the dataverse package.
// Most applications should import dvclient to build a client, then use
// the returned dataverse.Client to access resource-specific clients,
// for example Records(), Tables(), Columns().
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/davwright/XB-DataverseTools/pkg/dataverse"
//	  "github.com/davwright/XB-DataverseTools/pkg/dvclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  // With an access token you already have:
//	  cli, err := dvclient.New(ctx, &dataverse.Config{
//	    APIEndpoint: "https://myorg.crm.dynamics.com",
//	    AccessToken: "eyJhbGciOi...", // bearer token
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Or with the OAuth2 client-credentials grant. When credentials
//	  // are provided and no token URL is set, dvclient derives the
//	  // Azure AD token endpoint from TenantID.
//	  cli, err = dvclient.New(ctx, &dataverse.Config{
//	    APIEndpoint:  "https://myorg.crm.dynamics.com",
//	    TenantID:     "tenant-guid",
//	    ClientID:     "client-id",
//	    ClientSecret: "client-secret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  // Use resource clients via the dataverse.Client interface
//	  result, err := cli.Records().ListAll(ctx, "accounts", nil, nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = result
//	}
//
// # Helpers
//
// The package also provides convenience constructors NewWithToken and
// NewWithClientCredentials that wrap New with the appropriate
// configuration.
package dvclient
