package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))

	var order []string
	c.AfterFunc(300*time.Millisecond, func() { order = append(order, "late") })
	c.AfterFunc(100*time.Millisecond, func() { order = append(order, "early") })

	c.Advance(200 * time.Millisecond)
	assert.Equal(t, []string{"early"}, order)
	assert.Equal(t, 1, c.Pending())

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Equal(t, 0, c.Pending())
}

func TestFakeStop(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFakeChainedTimers(t *testing.T) {
	c := NewFake(time.Unix(0, 0))

	count := 0
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			c.AfterFunc(10*time.Millisecond, schedule)
		}
	}
	c.AfterFunc(10*time.Millisecond, schedule)

	c.Advance(time.Second)
	assert.Equal(t, 3, count)
	assert.Equal(t, time.Unix(1, 0), c.Now())
}
