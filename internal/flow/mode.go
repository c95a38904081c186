package flow

// Mode is the overlay the flow is in on top of its step index.
type Mode int

const (
	// ModeStep is the normal mode: the current step is shown and driven.
	ModeStep Mode = iota
	// ModeConfirmExit asks the user whether to leave.
	ModeConfirmExit
	// ModeExiting runs the cleanup chain.
	ModeExiting
	// ModeFatalError holds a command failure until it is dismissed.
	ModeFatalError
	// ModeClosed is terminal.
	ModeClosed
)

var modeNames = map[Mode]string{
	ModeStep:        "step",
	ModeConfirmExit: "confirmExit",
	ModeExiting:     "exiting",
	ModeFatalError:  "fatalError",
	ModeClosed:      "closed",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// MarshalText renders the mode by name in JSON and YAML.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
