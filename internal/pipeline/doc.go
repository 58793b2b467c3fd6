// Package pipeline drives scanned recipe images from their source to a
// finished recipe folder.
//
// Remote mode downloads each image from the source store into the workspace,
// analyzes it, and uploads the analysis record, the processed image and
// recipe.json into <dest>/<recipe name>/ on the destination store. Local mode
// reads images from disk and writes the same artifacts below an output
// directory.
//
// Images are processed one at a time. A failed image never stops a batch: the
// failure is logged with its stage, recorded in history, and the loop moves
// on. Cancellation is honoured between images.
package pipeline
