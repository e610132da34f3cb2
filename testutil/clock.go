package testutil

import (
	"context"
	"time"
)

// FakeClock advances instantly on Sleep so poll state machines run without real
// delays, while recording every requested interval for assertions.
type FakeClock struct {
	NowTime time.Time
	Sleeps  []time.Duration
}

func MakeFakeClock() *FakeClock {
	return &FakeClock{NowTime: time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time { return c.NowTime }

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Sleeps = append(c.Sleeps, d)
	c.NowTime = c.NowTime.Add(d)
	return nil
}
