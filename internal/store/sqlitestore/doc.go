// Package sqlitestore provides the embedded SQLite implementation of the
// store contract. It backs standalone/edge deployments where no remote store
// is reachable, and the test suites of everything that consumes store.Client.
package sqlitestore
