package ingest

import "errors"

// Sentinel errors for the ingest package. Handlers in internal/api switch
// on these to pick an HTTP status.
var (
	// ErrFileNotFound is returned by Supervisor.Start when the requested
	// file path does not exist or is not a regular file.
	ErrFileNotFound = errors.New("source file not found")

	// ErrConflict is returned by Supervisor.Start when another import is
	// already live in this process.
	ErrConflict = errors.New("an import is already running")

	// ErrInvalidParams is returned when a request knob (batchSize,
	// progressEveryMs, totalRows) is out of its allowed range.
	ErrInvalidParams = errors.New("invalid import parameters")

	// ErrNoJob reports that no ImportJob has ever been created. The
	// Progress Broker does not return it: Broker.Snapshot answers with an
	// IDLE snapshot in that case.
	ErrNoJob = errors.New("no import job exists")

	// ErrParseFailed marks an unrecoverable streaming-parser failure; the
	// worker translates it into a FAILED job.
	ErrParseFailed = errors.New("csv stream parse failure")

	// ErrCustomerNotFound is returned by CustomerRepo point lookups when no
	// row matches the given customer id.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrDuplicateCustomer is returned by CustomerRepo.Create when the
	// customer id already exists.
	ErrDuplicateCustomer = errors.New("customer already exists")
)
