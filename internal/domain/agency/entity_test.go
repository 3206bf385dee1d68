package agency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestResolver(t *testing.T) {
	defaults := Thresholds{LateMinutes: 15, OvertimeMinutes: 45, PreparationMinutes: 30}
	r := NewResolver(defaults, []Settings{
		{AgencyID: "a-strict", LateThresholdMinutes: intPtr(5), OvertimeThresholdMinutes: intPtr(40)},
		{AgencyID: "a-zero", LateThresholdMinutes: intPtr(0)},
	})

	assert.Equal(t, defaults, r.For("unknown"))
	assert.Equal(t, Thresholds{LateMinutes: 5, OvertimeMinutes: 40, PreparationMinutes: 30}, r.For("a-strict"))
	assert.Equal(t, defaults, r.For("a-zero"))
	assert.Equal(t, 40, r.MinOvertime())
}
