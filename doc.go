// Package rets is a client for the metadata side of the RETS protocol.
//
// A Client logs in to a RETS server, keeps the session (cookies and
// capability URLs) and downloads the server's metadata: the system record,
// resources, classes, tables, lookups, lookup types and object types.
// Replies are decoded by the metadata package.
//
// # Session
//
//	client, err := rets.NewClient(rets.Config{
//	    LoginURL: "https://rets.example.com/rets/login",
//	    Username: "agent",
//	    Password: "secret",
//	})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if _, err := client.Login(ctx); err != nil {
//	    return err
//	}
//	defer client.Logout(ctx)
//
// Connect does both steps at once. A session moves through the states
// Disconnected, Connecting, Connected and LoggingOut; metadata operations
// are refused with a NotConnectedError outside of Connected. Calling Login
// on a connected client logs in again and keeps the current session if that
// fails.
//
// # Metadata
//
// GetSystem, GetResources, GetClass, GetTable, GetLookups, GetLookupTypes and
// GetObjectMeta each send one GetMetadata request in COMPACT format and
// return typed records. GetAllClass, GetAllTable, GetAllLookups and
// GetAllLookupTypes walk the hierarchy:
//
//   - FanOut (default): enumerate the parents, then one request per child,
//     FanOutConcurrency at a time
//   - Bulk: one request with the "*" ID
//
// Either way the result is all-or-nothing and ordered like the server lists
// the parents.
//
// # Events
//
// Every public operation publishes an Event on the client's EventBus when it
// completes, under the topic "<kind>.success" or "<kind>.failure". Handlers
// run synchronously, before the operation returns.
//
// # Error Handling
//
//   - TransportError: the HTTP exchange failed or returned a non-2xx status
//   - AuthenticationError: the server refused the login
//   - NotConnectedError: no session
//   - metadata.ReplyCodeError: the server refused a metadata request
//   - metadata.ProtocolError, metadata.MalformedRowError and
//     metadata.MissingRequiredFieldError: the reply could not be decoded
//
// NeedsLogin reports whether an error means the session is gone.
//
// # Transport
//
// Requests are bounded by a pool of MaxConcurrentRequests slots, each
// holding a reusable response buffer. An optional circuit breaker
// (NewCircuitBreakerConfig) stops traffic to a failing server. Digest
// authentication is the default; the challenge is cached and reused.
//
// # Thread Safety
//
// Client is safe for concurrent use.
package rets
