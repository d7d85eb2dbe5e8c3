package model

// AssetRef is one downloadable asset listed in the catalog detail response.
type AssetRef struct {
	// FileName is the object name inside the item's storage prefix.
	FileName string

	// URL is an optional absolute URL overriding the storage-base rule.
	// Empty means the URL is derived from (itemID, FileName).
	URL string

	// FallbackURL is tried only after the primary URL terminally fails
	// with 404 or 410. Empty means no fallback exists.
	FallbackURL string
}

// ExportEntitlement is present on a manifest only when the catalog reports
// the export package as downloadable for the current user.
type ExportEntitlement struct {
	// ContentID is the opaque id used by the export download endpoint.
	ContentID string

	// FileSizeMB is the advertised archive size, informational only.
	FileSizeMB string
}

// AssetManifest is the parsed view of one item's catalog metadata.
//
// Absent assets are nil (or empty for PreviewImages); they become omitted
// tasks, never errors.
type AssetManifest struct {
	ItemID ItemID

	// PreviewPackage is the obfuscated preview model archive. An item
	// without one is skipped entirely.
	PreviewPackage *AssetRef

	// Thumbnail is the item's thumbnail image.
	Thumbnail *AssetRef

	// PreviewImages are the gallery images, in catalog order.
	PreviewImages []AssetRef

	// Export is non-nil only when the export package may be downloaded.
	Export *ExportEntitlement

	// Detail is the raw catalog response, archived verbatim into the
	// item's destination tree as detail.json.
	Detail []byte
}

// ExtractedPackage is the result of decoding and extracting one package
// archive.
type ExtractedPackage struct {
	// ModelName is the base name of the model descriptor (.moc3) found in
	// the archive, or "unknown_model" when none exists.
	ModelName string

	// Files maps destination-relative paths (after category grouping) to
	// file contents.
	Files map[string][]byte
}
