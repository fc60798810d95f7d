// Package catalog loads component schemas and rule configuration from CUE.
//
// A catalog declares each component type with its fields, in order, and the
// field-level rules to run:
//
//	component: node: fields: {
//		id:      "identifier"
//		u_rated: "numeric"
//	}
//	rules: [{kind: "greater_than", fields: ["node.u_rated"], bound: 0}]
//
// Every catalog is unified with the #Catalog definition before decoding, so
// structural mistakes are reported with CUE positions. The structural rules
// every registry implies (identifier uniqueness, boolean flags) are added
// unless the catalog sets defaults: false.
//
// The power-grid catalog used when no directory is given is embedded; see
// Default.
package catalog
