// Package textutil provides text helpers for names that end up on disk or in
// terminal output.
//
// SanitizeName converts model-provided recipe titles into safe directory
// names. Title formats status labels for tables.
package textutil
