// Package extraction turns free-form model output into structured values.
//
// Sanitize normalizes text before validation. Extract recovers a JSON object
// from the sanitized text through a fixed ladder of strategies and falls back
// to the raw text when none succeeds. Neither function returns an error or
// panics; callers inspect the Result to decide what to do with a fallback.
package extraction
