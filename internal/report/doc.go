// Package report renders validation results in canonical form.
//
// The canonical encoding is RFC 8785 style JSON: object keys sorted by UTF-16
// code units, no insignificant whitespace, no HTML escaping, NFC-normalized
// strings. Floats and nulls are rejected. Equal results always encode to the
// same bytes, so the digest of a result identifies it across runs, worker
// counts and machines.
package report
