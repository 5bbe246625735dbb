// Package fleet dubs every video behind a set of source URLs.
//
// DoEverything normalizes the URL list, warms the shared model holders in
// parallel, expands the URLs into video descriptors and dispatches them to a
// bounded worker pool. Each worker runs the per-video pipeline; outcomes are
// tallied as they complete, recorded in the run ledger and reported through
// notifications. A file lock on the root folder keeps two fleets from
// working the same tree.
package fleet
