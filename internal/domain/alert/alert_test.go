package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKey(t *testing.T) {
	a := IdempotencyKey(RecordTimesheet, "ts-1", TypeLateStart)
	b := IdempotencyKey(RecordTimesheet, "ts-1", TypeLateStart)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, IdempotencyKey(RecordTimesheet, "ts-1", TypeMissingClockOut))
	assert.NotEqual(t, a, IdempotencyKey(RecordPreparation, "ts-1", TypeLateStart))
	assert.NotEqual(t, a, IdempotencyKey(RecordTimesheet, "ts-2", TypeLateStart))
}
