package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncPlanUpdates(t *testing.T) {
	t.Parallel()

	plan := &SyncPlan{
		Families: []FamilyPlan{
			{Prefix: "FR320", Updates: []CostUpdate{{VariantID: 1}, {VariantID: 2}}},
			{Prefix: "BT14", Updates: []CostUpdate{{VariantID: 3}}},
		},
		Unmatched: []UnmatchedFamily{{Prefix: "ZZ9", Variants: 1}},
	}

	assert.Equal(t, 3, plan.Updates())
	assert.Equal(t, 0, (&SyncPlan{}).Updates())
}
