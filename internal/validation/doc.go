// Package validation checks caller input before any pipeline resource is
// allocated. Every failure is tagged services.ErrValidation (oversized
// payloads use the ErrPayloadTooLarge specialisation).
package validation
