// Package nizima provides the client for the nizima catalog API.
//
// The package handles the two collaborator operations the pipeline needs:
//
//  1. Fetching item metadata: GET /api/items/{itemId}/detail, parsed into
//     a model.AssetManifest with explicit optional fields
//  2. The export handshake: POST /api/items/{contentId}/download with a
//     fileName form field, yielding a short-lived direct URL
//
// The dto subpackage mirrors the catalog's JSON schema; conversion into
// domain types happens in dto.ToManifest so absent optional fields become
// nil pointers instead of missing-key surprises downstream.
package nizima
