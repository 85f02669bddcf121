package adapter

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
)

func TestLinearBackOffSchedule(t *testing.T) {
	b := NewLinearBackOff(time.Second, 5)

	var waits []time.Duration
	for i := 0; i < 6; i++ {
		waits = append(waits, b.NextBackOff())
	}

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		3 * time.Second,
		4 * time.Second,
		5 * time.Second,
		backoff.Stop,
	}, waits)
}

func TestLinearBackOffReset(t *testing.T) {
	b := NewLinearBackOff(time.Second, 5)

	b.NextBackOff()
	b.NextBackOff()
	b.Reset()

	assert.Equal(t, time.Second, b.NextBackOff())
}
