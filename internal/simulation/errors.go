package simulation

import "errors"

var (
	// ErrFinalized is returned when a mutating operation arrives after
	// Finalize has completed.
	ErrFinalized = errors.New("simulation: already finalized")

	// ErrNotFinalized is returned when a run-phase operation arrives
	// before Finalize.
	ErrNotFinalized = errors.New("simulation: not finalized")

	// ErrSystemType is returned by Append when no allowed-type rule
	// accepts the system.
	ErrSystemType = errors.New("simulation: system type not allowed")

	// ErrMissingModule is returned by Append when a system requires a
	// feature module that is not installed.
	ErrMissingModule = errors.New("simulation: requisite module not installed")

	// ErrSystemNotFound is returned by Index when the referenced system
	// was never appended.
	ErrSystemNotFound = errors.New("simulation: system not found")

	// ErrIndexRange is returned by Index for an out-of-range position.
	ErrIndexRange = errors.New("simulation: system index out of range")

	// ErrBadReference is returned by Index when the reference is neither
	// a system nor an integer position.
	ErrBadReference = errors.New("simulation: reference must be a system or an index")

	// ErrNoAlgorithm is returned at finalize for a declaration whose
	// Using method was never called.
	ErrNoAlgorithm = errors.New("simulation: no algorithm bound")

	// ErrConstruction is returned at finalize when an algorithm factory
	// fails.
	ErrConstruction = errors.New("simulation: algorithm construction failed")

	// ErrIncompatible is returned at finalize when an algorithm rejects
	// the systems it was declared for.
	ErrIncompatible = errors.New("simulation: systems incompatible with algorithm")
)
