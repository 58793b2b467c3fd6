// Package main hosts the scantocookbook CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration, builds the logger, stores,
// vision client and history ledger, then hands images to the pipeline. Remote
// runs pull scans from a WebDAV, S3, or local store and upload recipe folders
// to the destination; local runs read from and write to the filesystem.
//
// Keep this package thin: new behaviour belongs in internal packages first and
// is surfaced here as a command or flag.
package main
