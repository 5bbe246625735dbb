// Package llm provides a chat client for OpenAI-compatible completion
// backends (OpenAI, Groq, Ollama, and similar).
//
// The client sends an ordered message list to the configured model and
// returns the assistant text. Backend-specific parameters from the llm
// extra_body setting are merged into every request body.
//
// # Retry Behaviour
//
// Transport-level failures (HTTP 408/429/5xx, network timeouts, empty
// content) are retried with exponential backoff honouring Retry-After.
// Content-level retries such as rejected translations are the caller's
// business. Requests are paced by a token bucket when requests_per_minute is
// set.
package llm
