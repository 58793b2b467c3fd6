// Package preflight provides the readiness checks behind the `test` command.
//
// Each check returns a Result instead of an error so the CLI can render every
// outcome in one table. Checks whose collaborator is not configured are
// skipped.
package preflight
