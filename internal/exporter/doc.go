// Package exporter writes enterprise and budget reports to disk.
//
// Two writers are provided:
//
// CSVWriter: core CSV writing with headers and an optional UTF-8 BOM for
// Excel compatibility.
//
// ExcelWriter: multi-sheet XLSX workbooks (enterprises plus budget
// snapshots) built with excelize.
//
// Export operations are expected to run through the async executor so
// the UI sees phase-level progress; the writers themselves are
// synchronous and context-aware only at the operation level.
package exporter
