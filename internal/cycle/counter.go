package cycle

// Counter counts cycles and wraps to zero once it reaches its period.
// Nothing else reads it yet.
type Counter struct {
	n      int
	period int
}

func NewCounter(period int) *Counter {
	return &Counter{period: period}
}

// Inc advances the counter and returns the new value.
func (c *Counter) Inc() int {
	c.n++
	if c.n >= c.period {
		c.n = 0
	}
	return c.n
}

func (c *Counter) Value() int { return c.n }

func (c *Counter) Reset() { c.n = 0 }
