// Package health classifies aggregate system performance and guards
// the migration rollout.
//
// Monitor evaluates a MetricsSource snapshot on a cron schedule
// (default every 30 seconds) against fixed thresholds: error rate
// (warning 5%, critical 10%), latency relative to baseline (2x, 3x),
// and streaming success rate (below 90%, below 80%). Consecutive
// warning and critical streaks reset on a healthy evaluation.
//
// Three consecutive criticals or ten consecutive warnings trigger an
// automatic migration rollback: the phase is reverted, and if the
// revert fails, legacy mode is forced. The trigger latches until
// Rearm is called.
//
// Stats is the default MetricsSource: it sits behind the migration
// router as a migration.Recorder and aggregates outcomes per window.
package health
