// Package fk implements frequency-wavenumber (FK) analysis: an exhaustive
// search over a 2-D slowness grid that scores each candidate slowness by the
// coherent beam power it produces over a frequency band, and reports the
// backazimuth and apparent velocity of the best-scoring grid point.
package fk
