package circulation

import "fmt"

// borrowTransitions is the single source of truth for the borrow lifecycle.
// Guard checks everywhere else go through CanTransition; nothing mutates a
// status without consulting this table.
var borrowTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusBorrowed: true,
		StatusRejected: true,
	},
	StatusBorrowed: {
		StatusOverdue:                   true,
		StatusPendingReturnVerification: true,
		StatusReturned:                  true, // legacy direct return, no verification
	},
	StatusOverdue: {
		StatusPendingReturnVerification: true,
		StatusReturned:                  true, // legacy direct return
	},
	StatusPendingReturnVerification: {
		StatusBorrowed: true, // claim rejected, loan is live again
		StatusReturned: true, // inspection completed
	},
	// returned / rejected are terminal
	StatusReturned: {},
	StatusRejected: {},
}

func ValidStatus(s Status) bool {
	_, ok := borrowTransitions[s]
	return ok
}

func CanTransition(from, to Status) bool {
	next, ok := borrowTransitions[from]
	return ok && next[to]
}

func (s Status) Terminal() bool {
	return ValidStatus(s) && len(borrowTransitions[s]) == 0
}

// conditionByInspection is the fixed inspection outcome -> recorded condition
// mapping. Before inspection the condition column carries the borrower's
// self-reported claim; after inspection it is derived from here.
var conditionByInspection = map[InspectionStatus]Condition{
	InspectionGood:        ConditionGood,
	InspectionMinorDamage: ConditionSlightlyDamaged,
	InspectionMajorDamage: ConditionDamaged,
	InspectionLost:        ConditionLost,
	InspectionUnusable:    ConditionDamaged,
}

// ConditionFor returns the condition derived from a final inspection outcome.
// InspectionPending (or an unknown value) has no derived condition.
func ConditionFor(is InspectionStatus) (Condition, bool) {
	c, ok := conditionByInspection[is]
	return c, ok
}

// CreditPolicy decides how many units an inspection outcome puts back into
// available stock. Full credit for usable outcomes, zero for the rest: a lost
// or write-off unit must not be counted as borrowable again.
type CreditPolicy map[InspectionStatus]bool

func DefaultCreditPolicy() CreditPolicy {
	return CreditPolicy{
		InspectionGood:        true,
		InspectionMinorDamage: true,
		InspectionMajorDamage: false,
		InspectionLost:        false,
		InspectionUnusable:    false,
	}
}

// CreditPolicyFromConfig overlays the default with a config map of
// inspection status -> "full" | "none". Unknown keys or values are rejected.
func CreditPolicyFromConfig(overrides map[string]string) (CreditPolicy, error) {
	p := DefaultCreditPolicy()
	for k, v := range overrides {
		is := InspectionStatus(k)
		if _, ok := p[is]; !ok {
			return nil, fmt.Errorf("credit_policy: unknown inspection status %q", k)
		}
		switch v {
		case "full":
			p[is] = true
		case "none":
			p[is] = false
		default:
			return nil, fmt.Errorf("credit_policy: %q must be full or none, got %q", k, v)
		}
	}
	return p, nil
}

// CreditQuantity returns the number of units to put back for qty units
// inspected with outcome is.
func (p CreditPolicy) CreditQuantity(is InspectionStatus, qty int) int {
	if p[is] {
		return qty
	}
	return 0
}
