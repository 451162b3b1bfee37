// Package domain contains the core entities of the generation service:
// generation records, error logs, and flashcard proposals. Domain types
// carry their own validation and have no dependencies on persistence or
// transport concerns.
package domain
