// Package reconcile implements the Reconciliation Engine. It matches order
// rows (primary) against measurement rows (reference) by order code and
// writes the derived weight and distance charge tiers onto matched orders.
//
// Orders without a matching measurement keep whatever charge values they
// already had. The engine is the only writer of those columns.
package reconcile
