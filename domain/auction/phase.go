package auction

// Phase is where an auction stands at a point in time.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseOrder
	PhaseDecryption
	PhaseClearingDiscovery
	PhaseMatching
	// PhaseSettlement: matching emptied the book, events are still queued.
	PhaseSettlement
	PhaseOver
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseOrder:
		return "order"
	case PhaseDecryption:
		return "decryption"
	case PhaseClearingDiscovery:
		return "clearing_discovery"
	case PhaseMatching:
		return "matching"
	case PhaseSettlement:
		return "settlement"
	case PhaseOver:
		return "over"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Phase derives the current phase from the clock and the state of the
// auction's book and event queue.
func (a *Auction) Phase(now int64, bookEmpty, queueEmpty bool) Phase {
	switch {
	case a.Closed:
		return PhaseClosed
	case a.HasFoundClearingPrice && !bookEmpty:
		return PhaseMatching
	case a.HasFoundClearingPrice && !queueEmpty:
		return PhaseSettlement
	case a.HasFoundClearingPrice:
		return PhaseOver
	case now < a.StartOrderPhase:
		return PhaseNotStarted
	case now < a.EndOrderPhase:
		return PhaseOrder
	case now < a.EndDecryptionPhase:
		return PhaseDecryption
	default:
		return PhaseClearingDiscovery
	}
}

func (a *Auction) checkOrderPhase(now int64) error {
	if a.Closed {
		return ErrAuctionClosed
	}
	if now < a.StartOrderPhase {
		return ErrOrderPhaseHasNotStarted
	}
	if now >= a.EndOrderPhase {
		return ErrOrderPhaseIsOver
	}
	return nil
}

func (a *Auction) checkDecryptionPhase(now int64) error {
	if a.Closed || now < a.EndOrderPhase || now >= a.EndDecryptionPhase {
		return ErrDecryptionPhaseNotActive
	}
	return nil
}

func (a *Auction) checkClearingPhase(now int64) error {
	if a.Closed || a.HasFoundClearingPrice || now < a.EndDecryptionPhase {
		return ErrCalcClearingPricePhaseNotActive
	}
	return nil
}

func (a *Auction) checkMatchingPhase(bookEmpty bool) error {
	if !a.HasFoundClearingPrice {
		return ErrNoClearingPriceYet
	}
	if a.Closed || bookEmpty {
		return ErrMatchOrdersPhaseNotActive
	}
	return nil
}
