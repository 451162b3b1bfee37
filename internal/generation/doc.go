// Package generation orchestrates AI flashcard generation: it enforces the
// durable per-user quota, builds the prompt, calls the chat client, parses
// the answer into flashcard proposals, and persists an auditable record of
// every attempt, successful or not.
package generation
