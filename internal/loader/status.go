package loader

// Kind is the outcome class of the library load.
type Kind int

const (
	NotAttempted Kind = iota
	Loaded
	Crashed
	Failed
)

func (k Kind) String() string {
	switch k {
	case Loaded:
		return "loaded"
	case Crashed:
		return "crashed"
	case Failed:
		return "failed"
	default:
		return "not_attempted"
	}
}

// Status is the library status with a human-readable explanation.
type Status struct {
	Kind Kind
	Info string
}

func (s Status) TriedLoading() bool { return s.Kind != NotAttempted }
func (s Status) IsLoaded() bool     { return s.Kind == Loaded }
func (s Status) IsCrashed() bool    { return s.Kind == Crashed }
func (s Status) IsFailed() bool     { return s.Kind == Failed }

func (s Status) String() string {
	if s.Info == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ": " + s.Info
}
