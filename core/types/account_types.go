package types

// AccountSnapshot is the externally visible state of a client account
type AccountSnapshot struct {
	Client    ClientId
	Available Amount
	Held      Amount
	Locked    bool
}

// Total returns available + held. It is derived on every call and never stored.
func (s AccountSnapshot) Total() (Amount, error) {
	return s.Available.Add(s.Held)
}
