// Package fileutil holds small filesystem helpers for artifact handling.
package fileutil
