// Package chat implements the client for the upstream chat-completions
// endpoint: request construction, local rate limiting, transport retries
// with exponential backoff, and lenient normalization of the returned
// message content.
package chat
