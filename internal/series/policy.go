package series

import "fmt"

// Policy decides what a failed price poll does to the buffer.
type Policy string

const (
	// PolicySkip leaves the buffer untouched on a failed poll.
	PolicySkip Policy = "skip"
	// PolicyGap appends the timestamp with missing prices.
	PolicyGap Policy = "gap"
)

// ParsePolicy maps a config string to a Policy. Empty means skip.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicySkip:
		return PolicySkip, nil
	case PolicyGap:
		return PolicyGap, nil
	default:
		return "", fmt.Errorf("unknown failed poll policy %q", s)
	}
}
