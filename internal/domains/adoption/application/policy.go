package application

import (
	"fmt"
	"strings"
)

// HandoverCancelPolicy decides what cancelling a handover does to its request and pet.
type HandoverCancelPolicy string

const (
	// CancelPolicyRetain cancels only the handover; the request stays approved and the pet in process.
	CancelPolicyRetain HandoverCancelPolicy = "retain"
	// CancelPolicyRelease also cancels the request and returns the pet to available.
	CancelPolicyRelease HandoverCancelPolicy = "release"
)

// ParseHandoverCancelPolicy validates a policy name; empty selects retain.
func ParseHandoverCancelPolicy(raw string) (HandoverCancelPolicy, error) {
	switch p := HandoverCancelPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return CancelPolicyRetain, nil
	case CancelPolicyRetain, CancelPolicyRelease:
		return p, nil
	}
	return "", fmt.Errorf("unknown handover cancel policy %q", raw)
}
