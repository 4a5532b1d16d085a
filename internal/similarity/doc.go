// Package similarity implements local-similarity detection for a network of
// independent sensors: each sensor's record is compared, in short sliding
// windows, against its k geographically nearest neighbours via lag-bounded
// normalized cross-correlation, and the per-sensor similarity traces are
// stacked into a single network-wide trace highlighting coherent transients.
package similarity
