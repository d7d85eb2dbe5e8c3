// Package fetch wires the whole pipeline together: one Fetcher turns a
// list of item IDs into committed item directories.
//
// For each item the Fetcher:
//
//  1. Skips the item when its committed version.json is current
//  2. Fetches the item detail and derives the asset manifest
//  3. Skips items without a preview model
//  4. Opens a staging transaction for the item directory
//  5. Downloads all assets concurrently with retry and fallback
//  6. Decodes and extracts the preview and export packages
//  7. Commits the staged directory, or rolls back when a required
//     asset is missing
//
// Items are processed with bounded parallelism on top of the file-level
// parallelism of the download manager.
//
// # Basic Usage
//
//	fetcher := fetch.NewFetcher(settings, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	results := fetcher.FetchAll(ctx, ids)
//	for _, result := range results {
//	    fmt.Printf("%s: %s\n", result.ItemID, result.Status)
//	}
package fetch
