package ws

import "time"

// Timer отложенный вызов, который можно отменить
type Timer interface {
	Stop() bool
}

// Scheduler планирует отложенные вызовы. Подменяется в тестах.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler возвращает планировщик на time.AfterFunc
func RealScheduler() Scheduler {
	return realScheduler{}
}
