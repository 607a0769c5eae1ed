// Package store defines the contract with the hierarchical, versioned store
// this daemon synchronizes against, plus the path and value-composition
// helpers shared by the rest of the codebase.
//
// The store itself is an external system; only the call contract lives here.
// See the sqlitestore subpackage for the embedded implementation used in
// standalone deployments and tests.
package store
