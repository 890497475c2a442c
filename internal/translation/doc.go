// Package translation translates transcript segments through a chat model.
//
// Each segment is its own request. A failed request leaves that segment in
// the source language; it never fails the batch. Consecutive requests are
// spaced by a fixed delay to stay under provider rate limits.
package translation
