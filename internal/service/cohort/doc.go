// Package cohort implements the Cohort Analytics Engine. Shipment rows are
// activity events: each names the mitra who delivered and the delivery
// date. Events are bucketed by month, or by month and week label, and each
// bucket holds the distinct riders seen in it. Consecutive buckets are
// compared to find riders who went inactive and the retention and churn
// rates between them.
//
// Rider identity is case-insensitive. Output always uses the spelling seen
// first. Events whose delivery date cannot be parsed are skipped silently.
package cohort
