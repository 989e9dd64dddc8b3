package control

type Phase int

const (
	Filling Phase = iota
	WaitingForKick
	Kicking
	Resting
)

func (p Phase) String() string {
	switch p {
	case Filling:
		return "filling"
	case WaitingForKick:
		return "waiting"
	case Kicking:
		return "kicking"
	case Resting:
		return "resting"
	default:
		return "unknown"
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, bool) {
	for _, p := range []Phase{Filling, WaitingForKick, Kicking, Resting} {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

type EventKind int

const (
	FlowShutoff EventKind = iota
	Kick
	Rest
)

func (k EventKind) String() string {
	switch k {
	case FlowShutoff:
		return "flow_shutoff"
	case Kick:
		return "kick"
	case Rest:
		return "rest"
	default:
		return "unknown"
	}
}

// ParseEventKind is the inverse of EventKind.String.
func ParseEventKind(s string) (EventKind, bool) {
	for _, k := range []EventKind{FlowShutoff, Kick, Rest} {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Event describes one transition. Kick is the zero-based kick index and
// Threshold the kick threshold after the transition.
type Event struct {
	Kind      EventKind
	Time      float64
	Kick      int
	Velocity  float64
	Threshold float64
}

type Observer interface {
	OnTransition(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e Event)

func (f ObserverFunc) OnTransition(e Event) { f(e) }
