// Package testsupport holds helpers shared by package tests and the
// integration scenarios.
package testsupport
