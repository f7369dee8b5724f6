// Package orderbook implements the resting order book of a batch auction.
// Each side is a red-black tree stored in a slab of nodes addressed by
// stable handles, so an in-order walk can be paused, persisted as a small
// fixed-size stack and resumed in a later call.
//
// Bids are walked from the highest key down and asks from the lowest key
// up. Nothing in this package matches orders; it only stores them.
package orderbook
