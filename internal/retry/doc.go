// Package retry provides the policy applied to every store operation: a fixed
// number of attempts separated by a configurable pause. Exhausted operations
// return the last error, annotated with the operation name and attempt count.
package retry
