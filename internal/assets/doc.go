// Package assets builds download tasks from an item's asset manifest.
//
// The Manager is a pure function of its two base URLs: given the same
// manifest it always yields the same ordered task list with the same URLs
// and target paths. Preview images take an extra images/ path segment in
// their storage URL; everything else lives directly under the item's
// prefix.
package assets
