package volume

import "time"

type Period time.Duration

// Periods names rolling windows, e.g. "5m" -> 5 minutes.
type Periods map[string]time.Duration

func (p Periods) max() Period {
	var longest time.Duration
	for _, period := range p {
		longest = max(longest, period)
	}
	return Period(longest)
}

// buckets is the number of one second buckets the window spans.
func (p Period) buckets() int {
	return max(1, int(time.Duration(p)/bucketSpan))
}
