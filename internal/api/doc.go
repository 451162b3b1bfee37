// Package api provides HTTP handlers for the flashcard generation API.
package api
