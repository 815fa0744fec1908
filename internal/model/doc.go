// Package model defines the tally dataset: types, subjects and time entries.
//
// model is the foundational layer; every other internal package imports it
// and it imports nothing internal.
//
// Key constraints:
//   - Timestamps are epoch milliseconds, durations whole seconds (int64)
//   - JSON tags are camelCase to stay compatible with exported AppData files
//   - Time entries are append-only; nothing in this module mutates one
//   - The bucket date of an entry is derived once, from its start instant in
//     the local zone, with BucketDate
package model
