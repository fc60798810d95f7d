// Package harness runs conformance cases against the batch validator.
//
// # Case Format
//
// Cases are YAML files with the following structure:
//
//	name: update_errors
//	description: "Invalid flag values are reported per scenario"
//	catalog: catalogs/grid     # optional, relative to the case file
//	workers: 4                 # optional
//	input:
//	  node: [{id: 1, u_rated: 10.5e3}]
//	  line: [{id: 5, from_node: 1, to_node: 1, from_status: 0, to_status: 0}]
//	batch:                     # optional; dense or sparse form
//	  line:
//	    - [{id: 5, from_status: 12}]
//	expect:
//	  scenarios: 1
//	  failures:
//	    0:
//	      - kind: not_boolean
//	        fields: [line.from_status]
//	        ids: [line:5]
//	assertions:
//	  - type: clean
//	    scenarios: [1, 2]
//
// Without a batch the case validates the input alone and its outcome has a
// single scenario, 0. Without a catalog the embedded power-grid catalog is
// used.
//
// expect.failures is exact: every failing scenario must be listed with its
// violations in order, and every scenario not listed must be clean. A case
// that expects a configuration error sets error to a substring of the
// message instead.
//
// # Assertion Types
//
//   - contains: a scenario has a violation of the kind listing at least the ids
//   - count: total violations, or violations of one scenario
//   - clean: the listed scenarios have no violations
//   - digest: the result digest equals the given value
//
// # Determinism
//
// The outcome of a case is independent of the worker count, so golden
// snapshots of the canonical result compare across machines.
package harness
