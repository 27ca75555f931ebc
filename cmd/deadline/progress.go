package main

import (
	"io"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// countdown draws the time left until a deadline. All methods are safe on a
// nil *countdown so callers need not check whether --progress was given.
type countdown struct {
	p     *mpb.Progress
	bar   *mpb.Bar
	start time.Time
	total int64 // milliseconds

	quit chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

func newCountdown(w io.Writer, start, target time.Time) *countdown {
	start = start.Round(0)
	total := target.Sub(start).Milliseconds()
	if total < 1 {
		total = 1
	}

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(w), mpb.WithRefreshRate(200*time.Millisecond))
	name := "Waiting"
	bar := p.New(total,
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.OnComplete(
				decor.Any(timeLeft(target), decor.WC{W: 10}), "Reached",
			),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
		),
	)

	c := &countdown{
		p:     p,
		bar:   bar,
		start: start,
		total: total,
		quit:  make(chan struct{}),
	}
	c.wg.Add(1)
	go c.tick()
	return c
}

// timeLeft renders the wall-clock time remaining until target.
func timeLeft(target time.Time) decor.DecorFunc {
	return func(decor.Statistics) string {
		d := target.Sub(time.Now().Round(0)).Round(time.Second)
		if d < 0 {
			d = 0
		}
		return d.String()
	}
}

func (c *countdown) tick() {
	defer c.wg.Done()

	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-c.quit:
			return
		case now := <-t.C:
			// Stay short of total; only complete() finishes the bar.
			elapsed := now.Round(0).Sub(c.start).Milliseconds()
			if elapsed >= c.total {
				elapsed = c.total - 1
			}
			c.bar.SetCurrent(elapsed)
		}
	}
}

func (c *countdown) stop() {
	c.once.Do(func() { close(c.quit) })
	c.wg.Wait()
}

// complete fills the bar and waits for the final render.
func (c *countdown) complete() {
	if c == nil {
		return
	}
	c.stop()
	c.bar.SetCurrent(c.total)
	c.p.Wait()
}

// abort leaves the bar where it was and waits for the final render.
func (c *countdown) abort() {
	if c == nil {
		return
	}
	c.stop()
	c.bar.Abort(false)
	c.p.Wait()
}
