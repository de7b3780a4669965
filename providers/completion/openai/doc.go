// Package openai implements the completion provider contract against the
// OpenAI Chat Completions API (and any compatible server reachable through
// OPENAI_API_BASE_URL).
//
// The adapter sends the prompt as a single user message and returns the
// first choice's content verbatim. It does no JSON cleanup of its own.
package openai
