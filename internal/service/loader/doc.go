// Package loader implements the Batch Loader: it validates an uploaded
// record array, canonicalizes field names, reports duplicate natural keys,
// and inserts rows in fixed-size non-ordered batches.
//
// A REPLACE upload may arrive in many chunks. The first chunk creates an
// upload session and wipes the dataset; later chunks present the session
// token and only insert.
//
// The service depends on the Repository interface in repository.go and on
// session.Store. It never imports net/http or database/sql directly.
package loader
