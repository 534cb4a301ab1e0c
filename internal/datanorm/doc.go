// Package datanorm normalizes loosely typed spreadsheet values: locale date
// strings, numeric coercion, sentinel handling, header aliases, and the
// case-insensitive name set used for entity identity.
package datanorm
