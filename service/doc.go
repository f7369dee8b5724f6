// Package service runs auction instructions against the state store.
//
// AuctionService is the only write path: one instruction executes inside
// one store transaction, is appended to the journal and then committed,
// together with the vault ledger changes and outbox notifications it
// produced. It is independent of the gRPC transport.
package service
