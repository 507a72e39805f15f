// Package dataset loads the ad performance CSV, repairs and coerces its
// cells, and aggregates it into the Summary consumed by the pipeline stages.
package dataset
