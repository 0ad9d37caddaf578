package mind

import "sort"

// Cortex is a goal queue with one current goal and a backlog sorted by
// descending priority. Equal priorities keep insertion order. The current
// goal's priority is never lower than any backlog entry.
type Cortex struct {
	current *Goal
	backlog []Goal
}

func NewCortex() *Cortex {
	return &Cortex{backlog: make([]Goal, 0, 8)}
}

// Intend makes g current when it strictly outranks the current goal,
// demoting the old one into the backlog. Otherwise g joins the backlog.
func (c *Cortex) Intend(g Goal) {
	if c.current == nil {
		c.current = &g
		return
	}
	if g.Priority > c.current.Priority {
		c.enqueue(*c.current)
		c.current = &g
		return
	}
	c.enqueue(g)
}

func (c *Cortex) enqueue(g Goal) {
	c.backlog = append(c.backlog, g)
	sort.SliceStable(c.backlog, func(i, j int) bool {
		return c.backlog[i].Priority > c.backlog[j].Priority
	})
}

func (c *Cortex) dequeue() *Goal {
	if len(c.backlog) == 0 {
		return nil
	}
	g := c.backlog[0]
	c.backlog = append(c.backlog[:0], c.backlog[1:]...)
	return &g
}

// FinishCurrent drops the current goal and promotes the head of the backlog.
// It returns false when there was nothing to finish.
func (c *Cortex) FinishCurrent() bool {
	if c.current == nil {
		return false
	}
	c.current = c.dequeue()
	return true
}

// Current returns a copy of the current goal.
func (c *Cortex) Current() (Goal, bool) {
	if c.current == nil {
		return Goal{}, false
	}
	return *c.current, true
}

// MaxPriority is the current goal's priority, the backlog head's when there
// is no current goal, or MinPriority when the queue is empty.
func (c *Cortex) MaxPriority() int {
	if c.current != nil {
		return c.current.Priority
	}
	if len(c.backlog) > 0 {
		return c.backlog[0].Priority
	}
	return MinPriority
}

func (c *Cortex) ClearAll() {
	c.current = nil
	c.backlog = c.backlog[:0]
}

// ClearLowerThan drops every goal with priority below p. A dropped current
// goal is replaced by the best surviving backlog entry.
func (c *Cortex) ClearLowerThan(p int) {
	kept := c.backlog[:0]
	for _, g := range c.backlog {
		if g.Priority >= p {
			kept = append(kept, g)
		}
	}
	c.backlog = kept
	if c.current != nil && c.current.Priority < p {
		c.current = c.dequeue()
	}
}

// Len counts the current goal plus the backlog.
func (c *Cortex) Len() int {
	n := len(c.backlog)
	if c.current != nil {
		n++
	}
	return n
}

func (c *Cortex) Backlog() []Goal {
	out := make([]Goal, len(c.backlog))
	copy(out, c.backlog)
	return out
}

// tickCurrent lets the owner mutate the current goal in place.
func (c *Cortex) tickCurrent(fn func(*Goal)) bool {
	if c.current == nil {
		return false
	}
	fn(c.current)
	return true
}
