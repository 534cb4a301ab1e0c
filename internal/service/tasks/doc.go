// Package tasks aggregates uploaded task records into per-user performance
// figures. A task counts as eligible when its final status is exactly
// "Eligible" and as not eligible when the status contains "Not Eligible";
// anything else is counted only in the totals.
package tasks
