// Package records serves the read and clear operations of the plain upload
// datasets: orders, measurements and phone messages.
package records
