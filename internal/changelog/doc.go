// Package changelog connects state transactions to the event log.
//
// Producer appends the records a transaction emits on Prepare to one
// eventlog partition. Recover replays a changelog partition into a state
// partition, starting after the changelog offset the partition already holds,
// so a lost or stale store can be rebuilt. Filter evaluates CEL expressions
// over changelog records for inspection tooling.
package changelog
