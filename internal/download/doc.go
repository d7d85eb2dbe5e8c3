// Package download provides the file download loop for item assets.
//
// # Manager
//
// The Manager takes the download tasks produced for an item and runs
// them against the network:
//
//  1. Download each file with bounded concurrency
//  2. Retry transient failures with exponential backoff
//  3. Switch to the fallback URL after a terminal 404/410
//  4. Perform the export POST handshake for export tasks
//  5. Append terminal failures to the failure log
//
// # Basic Usage
//
//	manager := download.NewManager(settings, httpClient, exporter, failures,
//	    func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    })
//
//	outcomes := manager.Run(ctx, tasks)
//	for _, outcome := range outcomes {
//	    if !outcome.OK() {
//	        // outcome.Err is the terminal error after all retries
//	    }
//	}
//
// # Concurrency
//
// Run limits parallelism to settings.MaxConcurrentFiles. The caller
// bounds item-level parallelism separately, so the process-wide ceiling
// is MaxConcurrentItems * MaxConcurrentFiles connections.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// One Manager is shared by all items of a run; GetProgress returns
// run-wide file counters.
//
// # Retry Logic
//
// Transient failures are retried with exponential backoff, configurable
// via settings.DownloadMaxRetries, settings.DownloadRetryCooldown and
// settings.DownloadRetryExponent. Non-transient failures (4xx, refused
// exports, cancellation) stop the loop immediately.
package download
