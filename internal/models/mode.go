package models

// Mode identifies which of the two mutually exclusive operating contexts a
// session is in. There are exactly two modes; any branching on mode belongs
// in the mode-switch controller, not scattered over string literals.
type Mode string

const (
	// ModeProfessional is the default operating context tied to the verified account.
	ModeProfessional Mode = "professional"
	// ModeAnonymous is the persona-backed operating context.
	ModeAnonymous Mode = "anonymous"
)

// Valid reports whether m is one of the two defined modes.
func (m Mode) Valid() bool {
	return m == ModeProfessional || m == ModeAnonymous
}
