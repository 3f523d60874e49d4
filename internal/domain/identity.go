// Package domain contains entity without logic, just meta-data
package domain

import "errors"

var ErrIdentityEmpty = errors.New("identity empty")

// Identity is the caller-chosen name a connection registers under.
// It is the only addressing key used for routing.
type Identity string

// NewIdentity rejects the empty string; nothing else about the format is checked.
func NewIdentity(raw string) (Identity, error) {
	if len(raw) == 0 {
		return "", ErrIdentityEmpty
	}
	return Identity(raw), nil
}

func (i Identity) String() string { return string(i) }
