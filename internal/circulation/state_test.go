package circulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusBorrowed}:                    true,
		{StatusPending, StatusRejected}:                    true,
		{StatusBorrowed, StatusOverdue}:                    true,
		{StatusBorrowed, StatusPendingReturnVerification}:  true,
		{StatusBorrowed, StatusReturned}:                   true,
		{StatusOverdue, StatusPendingReturnVerification}:   true,
		{StatusOverdue, StatusReturned}:                    true,
		{StatusPendingReturnVerification, StatusBorrowed}:  true,
		{StatusPendingReturnVerification, StatusReturned}:  true,
	}

	all := []Status{
		StatusPending, StatusBorrowed, StatusOverdue,
		StatusPendingReturnVerification, StatusReturned, StatusRejected,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]Status{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusReturned.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusBorrowed.Terminal())
	assert.False(t, StatusOverdue.Terminal())
	assert.False(t, StatusPendingReturnVerification.Terminal())
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.False(t, ValidStatus(Status("approved")))
	assert.False(t, ValidStatus(Status("")))
}

func TestConditionFor(t *testing.T) {
	cases := map[InspectionStatus]Condition{
		InspectionGood:        ConditionGood,
		InspectionMinorDamage: ConditionSlightlyDamaged,
		InspectionMajorDamage: ConditionDamaged,
		InspectionLost:        ConditionLost,
		InspectionUnusable:    ConditionDamaged,
	}
	for is, want := range cases {
		got, ok := ConditionFor(is)
		require.True(t, ok, "%s", is)
		assert.Equal(t, want, got, "%s", is)
	}

	_, ok := ConditionFor(InspectionPending)
	assert.False(t, ok)
	_, ok = ConditionFor(InspectionStatus("bogus"))
	assert.False(t, ok)
}

func TestDefaultCreditPolicy(t *testing.T) {
	p := DefaultCreditPolicy()
	assert.Equal(t, 5, p.CreditQuantity(InspectionGood, 5))
	assert.Equal(t, 5, p.CreditQuantity(InspectionMinorDamage, 5))
	assert.Equal(t, 0, p.CreditQuantity(InspectionMajorDamage, 5))
	assert.Equal(t, 0, p.CreditQuantity(InspectionLost, 5))
	assert.Equal(t, 0, p.CreditQuantity(InspectionUnusable, 5))
	assert.Equal(t, 0, p.CreditQuantity(InspectionPending, 5))
}

func TestCreditPolicyFromConfig(t *testing.T) {
	p, err := CreditPolicyFromConfig(map[string]string{
		"major_damage": "full",
		"lost":         "none",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, p.CreditQuantity(InspectionMajorDamage, 3))
	assert.Equal(t, 0, p.CreditQuantity(InspectionLost, 3))
	// untouched entries keep the defaults
	assert.Equal(t, 3, p.CreditQuantity(InspectionGood, 3))

	_, err = CreditPolicyFromConfig(map[string]string{"broken": "full"})
	assert.Error(t, err)

	_, err = CreditPolicyFromConfig(map[string]string{"lost": "partial"})
	assert.Error(t, err)
}
