// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Thumbnail resizing and format conversion
//   - The persistent failure log
//
// # File Operations
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir("models/nizima")
//
// # Filename Sanitization
//
// Use SanitizeFileName to remove invalid characters from directory names
// derived from model names:
//
//	safe := ioutils.SanitizeFileName("Model: v1/2") // Returns "Model_ v1_2"
//
// # Image Processing
//
// The ImageService handles thumbnail manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Resize image to fit within 1000x1000
//	resized, _ := svc.ResizeImage(ctx, thumbnailData, 1000, 1000)
//
//	// Convert to JPEG
//	jpeg, _ := svc.ConvertToJPEG(ctx, pngData)
//
// # Failure Log
//
// FailureLog records downloads that exhausted their retries:
//
//	log := ioutils.NewFailureLog("models/nizima/fail_list.txt")
//	_ = log.Append(record)
package ioutils
