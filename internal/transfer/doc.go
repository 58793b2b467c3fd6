// Package transfer moves files between the local workspace and a remote store.
//
// A Backend adapts one storage technology (WebDAV, S3, a local directory) to a
// small capability set. Client layers the operations the pipeline needs on top
// of it: extension-filtered listing, atomic downloads, uploads that create the
// parent collection first, and existence checks. Every Client operation runs
// under the configured retry policy.
package transfer
