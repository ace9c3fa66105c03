// Package simulated implements an in-process provider adapter with no
// network dependency. It deterministically chunks a synthetic enrichment of
// the scenario text, optionally paced and sequence-numbered, which makes it
// the backend for the "simulated" fallback strategy and for offline and
// test deployments.
package simulated
