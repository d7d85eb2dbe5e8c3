// Package http provides the HTTP client used for catalog and storage
// requests.
//
// The Client in this package handles:
//   - User-Agent headers
//   - In-memory GET downloads
//   - JSON endpoints with content-type validation
//   - Form POSTs for the export download handshake
//
// # Error Classification
//
// Non-2xx responses become *StatusError. The package-level predicates
// IsTransient, IsNotFound and IsDenied implement the retry taxonomy
// consumed by the download manager:
//
//	data, err := client.Get(ctx, url)
//	switch {
//	case http.IsTransient(err): // retry with backoff
//	case http.IsNotFound(err):  // switch to fallback URL or terminate
//	case http.IsDenied(err):    // terminate immediately, never retry
//	}
package http
