// Package simulation provides the registry that assembles slender-body
// simulations: an ordered sequence of systems, the feature groups their
// physics hooks into, and the feature modules that populate those groups
// declaratively.
//
// # Systems
//
// Anything satisfying [System] can join a [Simulator] via Append, subject
// to the allowed-type rules (by default [Rod], [RigidBody] and [Surface]
// families) and any module prerequisites the system declares through
// [RequiresModules]. The sequence is mutable until Finalize.
//
// # Feature groups
//
// Five ordered operator groups drive a run:
//
//   - synchronize: external force laws, joints, contact resolution
//   - constrain values: position and director boundary conditions
//   - constrain rates: velocity and angular velocity boundary conditions
//   - callbacks: observers invoked between completed steps
//   - finalize: one-shot module materialization
//
// Modules reserve synchronize positions when a feature is declared and
// fill in the operators at finalize, so execution order always follows
// declaration order, whatever order construction happens in.
//
// # Modules
//
// [Forcing], [Constraints], [Callbacks], [Connections] and [Contact] are
// built over a simulator and share the same declaration shape: declare a
// target, bind an algorithm factory with Using, and let Finalize
// construct and validate everything. Construction failures surface as
// wrapped [ErrNoAlgorithm], [ErrConstruction] or [ErrIncompatible]
// finalize errors; non-fatal findings accumulate in the [Report].
//
// # Lifecycle
//
// Finalize is one-way: it aggregates systems into stepping blocks
// through the configured [Aggregator], appends each new block as a
// pseudo-entity, runs the module finalize operators and clears them.
// After that the simulator only serves the [Collection] face that time
// steppers drive.
package simulation
