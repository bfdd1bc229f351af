// Package ingest implements the resumable bulk customer import pipeline:
// the record mapper (normalize + fingerprint), the streaming CSV parser,
// the batch writer (dedup/classify/commit), the import worker (end-to-end
// job execution), the worker supervisor (exactly-one-active-job state
// machine), and the progress broker (snapshot + live fan-out).
//
// Repository implementations live in repository/postgres; this package
// only depends on the JobStore and CustomerRepo interfaces declared in
// repository.go, never on database/sql directly.
package ingest
