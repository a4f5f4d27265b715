// Package history records the outcome of every file a batch run touched.
//
// Rows live in a SQLite database under the state directory. The schema is
// embedded and versioned; a database written by a different schema version is
// rejected with ErrSchemaMismatch rather than migrated in place.
package history
