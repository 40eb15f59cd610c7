// Package events defines the progress event stream for in-flight
// scans: the event shape, the per-scan broadcaster that fans events
// out to subscribers, and the hook interface observers implement.
//
// Publishing never blocks on a subscriber. Each subscriber owns a
// bounded queue; when it overflows, newest events are dropped and
// counted rather than stalling the scan.
package events
