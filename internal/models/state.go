package models

// State is the persisted layout of a deployed prize pool
type State struct {
	Administrator Identity            // bound once at deployment
	Credits       map[Identity]uint64 // credited amount per depositor, bookkeeping only
	Pooled        uint64              // value held by the environment for this pool
}

// Deployed reports whether an administrator has been bound.
func (s State) Deployed() bool {
	return s.Administrator != ""
}
