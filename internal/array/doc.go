// Package array owns the geometry and data model shared by the
// array-processing algorithms.
//
// Responsibilities: sensor metadata, projection of geographic coordinates
// into a local Cartesian frame, slowness-vector conversions, and the error
// taxonomy used across internal/fk, internal/beam, internal/doa and
// internal/similarity.
// Key types: Sensor, Trace, Geometry, Slowness.
package array
