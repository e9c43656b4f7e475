package registry

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/hclmacros/internal/pkggraph"
)

var (
	// ErrSealed is matched by errors.Is for every SealedRegistryError.
	ErrSealed = errors.New("config registry is sealed")
	// ErrNotSealed is matched by errors.Is for every NotSealedError.
	ErrNotSealed = errors.New("config registry is not sealed")
)

// SealedRegistryError is returned when a contribution or merge strategy is
// offered to a sealed registry.
type SealedRegistryError struct {
	Owner  pkggraph.ID
	Target pkggraph.ID
}

func (e *SealedRegistryError) Error() string {
	if e.Owner == (pkggraph.ID{}) {
		return fmt.Sprintf("cannot change configuration of %s: %v", e.Target, ErrSealed)
	}
	return fmt.Sprintf("%s cannot contribute configuration to %s: %v", e.Owner, e.Target, ErrSealed)
}

func (e *SealedRegistryError) Unwrap() error { return ErrSealed }

// NotSealedError is returned when a configuration is looked up before the
// registry has been sealed.
type NotSealedError struct {
	Target pkggraph.ID
}

func (e *NotSealedError) Error() string {
	return fmt.Sprintf("cannot resolve configuration of %s: %v", e.Target, ErrNotSealed)
}

func (e *NotSealedError) Unwrap() error { return ErrNotSealed }
