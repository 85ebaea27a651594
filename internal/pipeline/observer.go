package pipeline

import "time"

// Attempt describes one pass through the pipeline. State is where the
// attempt stopped: StateSucceeded, or the step that failed.
type Attempt struct {
	Index    int
	State    State
	Err      string
	Raw      string
	Duration time.Duration
}

// Observer is notified after every attempt. Implementations must not block.
type Observer interface {
	OnAttempt(a Attempt)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(a Attempt)

func (f ObserverFunc) OnAttempt(a Attempt) { f(a) }

type multiObserver []Observer

func (m multiObserver) OnAttempt(a Attempt) {
	for _, o := range m {
		o.OnAttempt(a)
	}
}

// Observers fans attempts out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}
