// Package store defines persistence interfaces and sentinel errors shared by
// the service layer and the concrete database implementations under
// internal/platform/postgres.
package store
