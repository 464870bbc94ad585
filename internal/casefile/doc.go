// Package casefile provides the business boundary for counselor case work.
// It defines the Case model and its state machine, the Registry (creation,
// atomic claim, status and risk updates, queries), the Balancer (least-loaded
// auto-assignment and workload snapshots), and the Store interface.
package casefile
