// Package auction holds the records and rules of a sealed-bid batch
// auction: order intake, encrypted order reveal, clearing price discovery,
// matching and settlement.
//
// Every entry point takes the records it works on explicitly and returns
// an *Error from this package when a rule is broken. Discovery and
// matching do bounded work per call and keep their progress on the
// Auction record, so callers drive them by calling repeatedly.
package auction
