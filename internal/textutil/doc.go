// Package textutil provides filename helpers shared by the upload and
// download paths.
package textutil
