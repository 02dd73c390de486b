package janitor

import "time"

func (j *Janitor) SetClock(now func() time.Time) { j.now = now }
