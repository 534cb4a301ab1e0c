// Package shipment implements listing, statistics and edits of shipment
// rows, the activity log the cohort engine reads.
package shipment
