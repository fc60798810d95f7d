// Package dataset provides the record model validated by gridval: typed
// field values, component datasets, batch updates, and the scenario merger
// that overlays one scenario's sparse update on the base input.
//
// Key design constraints:
//   - The base Dataset and Batch are never mutated; merging builds a
//     copy-on-read Overlay that resolves fields at access time
//   - The identifier Index is built once per validation call and only read
//     afterward, so overlays for different scenarios can be built and
//     scanned concurrently
//   - Record order within a component is insertion order and survives merging
package dataset
