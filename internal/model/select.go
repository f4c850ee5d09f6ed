package model

// Selection is the model slot chosen for an initialization.
type Selection int

const (
	// SelectFallback loads the CPU fallback model.
	SelectFallback Selection = iota

	// SelectAccelerated loads the accelerated model.
	SelectAccelerated
)

// String implements fmt.Stringer.
func (s Selection) String() string {
	if s == SelectAccelerated {
		return string(RoleAccelerated)
	}
	return string(RoleFallback)
}

// Select decides which model to load. The accelerated model is chosen only
// when it was asked for and the accelerator probe reported it available;
// every other combination, including unknown ids, selects the fallback.
func Select(preferredID, acceleratedID string, acceleratorAvailable bool) Selection {
	if preferredID == acceleratedID && acceleratorAvailable {
		return SelectAccelerated
	}
	return SelectFallback
}
