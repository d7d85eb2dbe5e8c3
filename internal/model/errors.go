package model

import "github.com/m-mizutani/goerr/v2"

// Error tags classify failures across the pipeline. Attach with goerr.T,
// test with goerr.HasTag.
var (
	// TagManifest marks malformed or incomplete catalog metadata. The
	// affected item is aborted before any download starts.
	TagManifest = goerr.NewTag("manifest")

	// TagTransient marks conditions worth retrying: timeouts, connection
	// resets and 5xx responses.
	TagTransient = goerr.NewTag("transient")

	// TagNonTransient marks definitive refusals: 401/403, or 404/410 with
	// no fallback URL left. The task terminates without consuming retries.
	TagNonTransient = goerr.NewTag("non_transient")

	// TagDecode marks payloads that are still not a recognized archive
	// after the deobfuscation transform.
	TagDecode = goerr.NewTag("decode")

	// TagExtract marks archives that neither the fixed password nor a
	// passwordless pass could extract.
	TagExtract = goerr.NewTag("extract")

	// TagFileSystem marks staging/commit/rollback I/O failures. These
	// escalate to the Failed phase and are surfaced to the operator.
	TagFileSystem = goerr.NewTag("filesystem")
)
