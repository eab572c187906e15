// Package queue defines the generation pipeline's status vocabulary and keeps a
// local SQLite read-model of submitted jobs.
//
// Status mirrors the backend queue record enum (queued, started, elevenlabs,
// concatenator, done) and carries the total order used to decide whether an
// observation is forward progress. Record is the immutable snapshot the
// backend returns for one job; this package never mutates remote records.
//
// The Store caches what this client submitted and the furthest status it has
// observed for each job so `mantrify jobs` can answer without a round trip.
// The database is transient: schema changes bump the version in schema.go and
// users clear the database to adopt the new schema.
package queue
