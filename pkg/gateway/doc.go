// Package gateway is the HTTP client for the store under test.
//
// It speaks the collection REST API of a Usergrid-style store: records are
// created with POST on a collection URL, read back with GET and a query
// language expression, and removed with DELETE against the same query URL.
// An optional client_credentials grant against the app's token endpoint
// installs a bearer token for every later request.
//
// # Usage
//
//	coords := gateway.Coordinates{BaseURL: "https://api.example.com", Org: "org", App: "app"}
//	client := gateway.New(http.DefaultClient, logger)
//
//	if _, err := client.Authenticate(ctx, coords.TokenURL(), creds); err != nil {
//	    return err
//	}
//
//	uuid, err := client.Create(ctx, coords.CollectionURL("pets"), body)
//
// Non-2xx responses are returned as *StatusError so callers can inspect the
// status code and body.
package gateway
