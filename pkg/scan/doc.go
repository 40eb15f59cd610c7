// Package scan defines the aggregate result model for one scan: the
// per-tool execution records, the scan-level state machine, and the
// request shape callers submit.
//
// The engine owns every Result exclusively while the scan is live;
// everyone else reads deep snapshots taken via Clone, so a reader can
// never observe a half-merged tool run.
package scan
