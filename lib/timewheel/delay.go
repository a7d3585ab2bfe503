package timewheel

import "time"

var tw = New(time.Second, 3600)

func init() {
	tw.Start()
}

// Delay schedules job to run once, duration from now, under key.
func Delay(duration time.Duration, key string, job func()) {
	tw.AddJob(duration, key, job)
}

// At schedules job to run once, at the given time, under key.
func At(at time.Time, key string, job func()) {
	tw.AddJob(time.Until(at), key, job)
}

// Cancel removes a previously scheduled job.
func Cancel(key string) {
	tw.RemoveJob(key)
}
