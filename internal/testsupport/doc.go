// Package testsupport holds fixtures shared by package tests: isolated
// configurations and small generated images.
package testsupport
