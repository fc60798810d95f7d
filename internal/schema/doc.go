// Package schema declares the component types of a network model and the
// semantics of their fields.
//
// This package is the leaf of the module: it imports nothing internal. The
// registry is immutable after construction, so one Registry can back any
// number of concurrent validation runs.
//
// Field semantics:
//   - identifier: integer, unique within its component type in the base input
//   - boolean_flag: integer restricted to {0, 1}
//   - numeric: unrestricted real value
//   - reference: identifier of another component (existence is not checked)
package schema
