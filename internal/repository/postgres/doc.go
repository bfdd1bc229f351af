// Package postgres implements the ingest package's JobStore and
// CustomerRepo contracts against PostgreSQL using database/sql and lib/pq.
package postgres
