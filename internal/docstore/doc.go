// Package docstore persists workflow documents and the history of their
// runs.
//
// Store is implemented by:
//   - MemoryStore: process-local maps, used by tests and by the editor when no
//     database is configured.
//   - PostgresStore: database/sql over the pgx driver, tables workflows and
//     workflow_runs.
//   - HTTPStore: the REST API of the execution backend. It is also the only
//     Runner.
//
// and decorated by:
//   - CachedStore: LRU read cache for Get and ListRuns.
//   - SnapshotStore: writes every saved version of a document to S3 as an
//     immutable object, so each run can be traced to the exact graph it
//     executed.
package docstore
