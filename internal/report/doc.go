// Package report renders cohort statistics and reconciliation results as
// xlsx workbooks, and reads spreadsheet uploads into raw records.
package report
