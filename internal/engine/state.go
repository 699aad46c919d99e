package engine

// State состояние прохода доставки.
type State int

const (
	StateIdle State = iota
	StateLockAcquiring
	StateSkipped
	StateRunning
	StateDone
)

// String возвращает строковое представление состояния.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLockAcquiring:
		return "lock_acquiring"
	case StateSkipped:
		return "skipped"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
