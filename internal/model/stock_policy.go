package model

// StockPolicy decides what happens when a stock delta would drive a quantity
// below zero. Overselling is permitted by default: negative deltas record
// sales, and the baseline behavior never blocked them.
type StockPolicy string

const (
	StockPolicyAllow  StockPolicy = "allow"
	StockPolicyClamp  StockPolicy = "clamp"
	StockPolicyReject StockPolicy = "reject"
)

// ParseStockPolicy falls back to allow for unknown values.
func ParseStockPolicy(s string) StockPolicy {
	switch StockPolicy(s) {
	case StockPolicyClamp:
		return StockPolicyClamp
	case StockPolicyReject:
		return StockPolicyReject
	default:
		return StockPolicyAllow
	}
}

// Apply resolves current+delta under the policy. The second return is false
// only under reject, when the result would be negative.
func (p StockPolicy) Apply(current, delta int) (int, bool) {
	next := current + delta
	if next >= 0 {
		return next, true
	}
	switch p {
	case StockPolicyClamp:
		return 0, true
	case StockPolicyReject:
		return current, false
	default:
		return next, true
	}
}
