// Package model defines the core data structures used throughout
// nizima-downloader.
//
// # ItemID
//
// ItemID is the numeric identifier of one catalog entry (one downloadable
// work). Everything else is partitioned by it:
//
//	id, err := model.ParseItemID("128477")
//	fmt.Println(id.String()) // "128477"
//
// # AssetManifest
//
// AssetManifest is the parsed view of the catalog detail response. Optional
// assets are modeled as explicit nil-able fields, never inferred from a
// missing JSON key at the use site:
//
//	if manifest.PreviewPackage == nil {
//	    // item has no preview model, skip it
//	}
//	if manifest.Export != nil {
//	    // purchase entitlement present, export download allowed
//	}
//
// # DownloadTask and TaskOutcome
//
// The assets manager turns a manifest into an ordered set of DownloadTask
// values; the download manager consumes each task exactly once and reports
// a TaskOutcome per task. A task is never shared between workers.
//
// # Error Tags
//
// The error taxonomy is expressed as goerr tags (TagManifest, TagTransient,
// TagNonTransient, TagDecode, TagExtract, TagFileSystem) so callers can
// classify failures without string matching:
//
//	if goerr.HasTag(err, model.TagTransient) {
//	    // worth retrying
//	}
//
// # FailureRecord
//
// FailureRecord is one entry of the process-wide failure log
// (fail_list.txt). Records are append-only and formatted with Format.
package model
