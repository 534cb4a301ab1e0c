// Package roster implements the mitra roster service: listing and search,
// the status dashboard, and edits and deletes of individual entries.
//
// Roster rows are uploaded through the Batch Loader; this package never
// inserts. It depends on the Repository interface in repository.go and
// never imports net/http or database/sql directly.
package roster
