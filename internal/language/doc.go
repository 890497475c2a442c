// Package language normalizes caller-supplied language codes.
//
// The curated table covers the languages the service accepts by default and
// supplies display names. Anything outside it is resolved through
// golang.org/x/text/language so regional tags such as "pt-BR" still reduce to
// their ISO 639-1 base.
package language
