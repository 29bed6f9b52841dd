package analysis

import "fmt"

// DefaultNonceGapThreshold is the largest nonce jump considered normal.
const DefaultNonceGapThreshold = 5

// CheckNonce classifies the gap between a transaction's nonce and the highest
// nonce previously observed for the same wallet. It is a pure function and is
// defined for all inputs; when no previous nonce exists no check is
// performed.
func CheckNonce(current, previous int64, hasPrevious bool, threshold int64) NonceCheck {
	if !hasPrevious {
		return NonceCheck{Checked: false}
	}
	if threshold <= 0 {
		threshold = DefaultNonceGapThreshold
	}

	gap := current - previous
	check := NonceCheck{Checked: true, Gap: gap}

	switch {
	case gap < 0:
		check.Risky = true
		check.Severity = SeverityCritical
		check.Message = "nonce decreased - highly suspicious"
	case gap == 0:
		check.Risky = true
		check.Severity = SeverityHigh
		check.Message = "same nonce used multiple times - possible replay"
	case gap > threshold:
		check.Risky = true
		if gap <= 2*threshold {
			check.Severity = SeverityMedium
		} else {
			check.Severity = SeverityHigh
		}
		check.Message = fmt.Sprintf("nonce gap of %d exceeds threshold %d", gap, threshold)
	}

	return check
}
