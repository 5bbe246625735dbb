// Package ledger records fleet runs and per-video outcomes in a SQLite
// database so `youdub status` can report on past work.
//
// The schema is embedded and versioned. A database created by a different
// schema version is rejected with ErrSchemaMismatch rather than migrated;
// the ledger holds history only, so deleting it is always safe.
package ledger
