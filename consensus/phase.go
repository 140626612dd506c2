package consensus

// Phase is where a reconciliation pass currently is
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseValidating
	PhaseAdopting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseValidating:
		return "validating"
	case PhaseAdopting:
		return "adopting"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
