// Package harness runs YAML scenarios against a real engine.
//
// A scenario starts from an empty store, so the engine seeds the default
// dataset (types Courses, Work, Projects and one subject each, ids "1".."3").
// Steps then drive the engine and a settable clock; assertions check the
// final dataset and totals.
//
// Each run uses a fresh in-memory SQLite database, a FakeClock and
// sequential ids ("id-1", "id-2", ...), so two runs of one scenario produce
// the same trace byte for byte. RunWithGolden
// compares the trace with testdata/golden/<name>.golden.
//
// Example:
//
//	name: switch-subjects
//	description: Starting a second subject stops the first
//	start: "2026-03-18T09:00:00Z"
//	steps:
//	  - action: start
//	    subject: React Course
//	  - action: advance
//	    duration: 25m
//	  - action: start
//	    subject: Client Project
//	    expect:
//	      stopped: React Course
//	      duration: 1500
//	assertions:
//	  - type: active
//	    subject: Client Project
package harness
