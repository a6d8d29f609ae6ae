package payout

// SplitPayout computes the equal per-user share of a task's price among its
// approved submitters: floor(price / approvedCount). The remainder
// price mod approvedCount is forfeited, not distributed or tracked.
// Returns 0 when approvedCount is 0.
func SplitPayout(price, approvedCount int) int {
	if approvedCount <= 0 {
		return 0
	}
	return price / approvedCount
}
