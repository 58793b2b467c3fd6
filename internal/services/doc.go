// Package services defines shared utilities consumed by the pipeline stages and
// the external integrations (transfer stores, vision model).
//
// Key responsibilities:
//   - Context helpers that stamp the image path, stage name, run mode, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (transient, validation, model, configuration) without string
//     matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
