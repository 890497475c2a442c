// Package llm provides an OpenAI-compatible chat completion client.
//
// The translator uses Complete to turn one subtitle segment into its
// translation; `dubsy check` uses HealthCheck to verify the API key.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, network timeouts, and empty
// completions with exponential backoff (base 1s, max 10s, 3 attempts by
// default), honouring Retry-After. Context cancellation aborts retries
// immediately. Retries are internal to a single Complete call; callers see
// either content or the final error.
package llm
