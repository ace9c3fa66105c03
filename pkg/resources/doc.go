// Package resources arbitrates access to bounded resources across
// providers: per-provider concurrency caps, process memory pressure, and
// connection saturation. The Monitor issues admission decisions by
// request priority and recommends timeouts scaled to system pressure.
package resources
