// Package harness runs reconciliation scenarios against a fresh store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: overlap_termination
//	description: "Active record is ended at the start of its successor"
//	now: "2024-07-01T00:00:00Z"
//	prefixes:
//	  ex: http://data.lblod.info/id/
//	graphs:                      # initial facts, fixture syntax
//	  - graph: ex:graphs/public
//	    facts: [...]
//	steps:
//	  - enqueue: [ex:mandatarissen/x2]
//	  - advance: 6m
//	  - tick: true
//	    expect: [created]
//	assertions:
//	  - type: present
//	    graph: ex:graphs/org
//	    fact: {s: ex:mandatarissen/r1, p: mandaat:einde, o: {value: "...", datatype: xsd:dateTime}}
//	golden: [ex:graphs/org]
//
// # Steps
//
// Each step does exactly one thing:
//
//   - reconcile: run the engine directly on the listed records
//   - enqueue: add records to the durable work queue
//   - advance: move the scenario clock forward by a Go duration
//   - tick: wake the batch scheduler once
//
// expect lists the outcomes of a reconcile or tick step in order.
//
// # Assertion Types
//
//   - present / absent: a fact is (not) stored in a graph
//   - notification: count notifications in a graph by severity and title
//   - queue_length: number of entries left in the work queue
//
// # Golden Snapshots
//
// Graphs listed under golden are rendered by Snapshot and compared with
// testdata/golden/{name}.golden. Notifications are summarized by severity,
// title and links so generated identifiers do not leak into snapshots.
//
// Every scenario runs with a fixed clock and sequence identifiers in a
// temporary database.
package harness
