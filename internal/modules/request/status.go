package request

// LineFacts are the current ledger values a line status derives from.
// Status is never stored independently of these: after any ledger
// mutation the status is recomputed from them and re-persisted.
type LineFacts struct {
	Requested int
	Reserved  int
	Separated int

	// HasPriority is true once an operator assigned a numeric priority.
	HasPriority bool

	// AvailableStock is on_hand - reserved summed over every address
	// holding the code.
	AvailableStock int

	// CompetingDemand is true when the open lines for the same code
	// together demand more than AvailableStock covers.
	CompetingDemand bool
}

// DeriveLineStatus computes a line's status from current ledger values.
//
//   - SEPARATED once the full requested quantity was picked.
//   - RESERVING while reserved stock awaits picking, or while the
//     shortfall can still be covered by available addresses.
//   - AWAITING_PRIORITY when lines compete for insufficient stock and
//     no priority was assigned yet.
//   - PENDING for an untouched line with stock uncontested.
//   - PARTIAL when something was picked and nothing more can be.
//   - PURCHASE_REQUIRED when nothing was picked and no address anywhere
//     holds available stock.
func DeriveLineStatus(f LineFacts) LineStatus {
	switch {
	case f.Separated >= f.Requested:
		return LineSeparated
	case f.Reserved > f.Separated:
		// committed stock still waiting for the physical pick
		return LineReserving
	case f.AvailableStock > 0:
		if f.CompetingDemand && !f.HasPriority {
			return LineAwaitingPriority
		}
		if f.Reserved == 0 && f.Separated == 0 {
			return LinePending
		}
		return LineReserving
	case f.Separated > 0:
		return LinePartial
	default:
		return LinePurchaseRequired
	}
}

// RollupRequestStatus rolls line statuses up into the request status:
// COMPLETED iff every line is SEPARATED or CANCELLED; PARTIAL iff every
// line is terminal but not all SEPARATED; IN_SEPARATION otherwise.
// Whole-request cancellation is an explicit administrative action and is
// never produced by the rollup.
func RollupRequestStatus(lines []LineStatus) RequestStatus {
	if len(lines) == 0 {
		return RequestInSeparation
	}
	completed := true
	terminal := true
	for _, s := range lines {
		if s != LineSeparated && s != LineCancelled {
			completed = false
		}
		if !s.Terminal() {
			terminal = false
		}
	}
	switch {
	case completed:
		return RequestCompleted
	case terminal:
		return RequestPartial
	default:
		return RequestInSeparation
	}
}
