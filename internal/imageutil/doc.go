// Package imageutil validates scanned recipe images and shrinks them before
// they are sent to the vision model.
//
// Decoders for JPEG, PNG, GIF, WebP and BMP are registered on import. Images
// are scaled to fit a bounding box (2048x2048 by default) with CatmullRom
// resampling and never upscaled. WebP has no encoder, so resized WebP output is
// written as JPEG.
package imageutil
