package progress

// Tracker holds the counters behind Progress events.
type Tracker struct {
	current int
	total   int
	message string
}

// NewTracker returns a tracker expecting total items.
func NewTracker(total int) Tracker {
	return Tracker{total: total}
}

func (t *Tracker) Update(current int, message string) {
	t.current = current
	t.message = message
}

func (t *Tracker) Increment()               { t.current++ }
func (t *Tracker) SetMessage(message string) { t.message = message }
func (t *Tracker) Current() int              { return t.current }
func (t *Tracker) Total() int                { return t.total }
func (t *Tracker) Message() string           { return t.message }

// Fraction returns completion in [0, 1]; 0 when total is zero.
func (t *Tracker) Fraction() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.current) / float64(t.total)
}

// Percent returns completion as a whole percentage.
func (t *Tracker) Percent() int {
	return int(t.Fraction() * 100)
}

// Event renders the tracker state as a Progress event.
func (t *Tracker) Event() Event {
	return Event{Kind: Progress, Current: t.current, Total: t.total, Message: t.message}
}
