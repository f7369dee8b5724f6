// Package snapshot writes point-in-time views of an auction: its record,
// resting orders and OpenOrders balances, gob encoded and zstd compressed.
// Snapshots are for inspection and archiving; recovery always replays the
// journal.
package snapshot
