// Package dynamo provides the core primitives shared by the segregation
// experiment driver.
//
// The package defines the small vocabulary every other package speaks:
//
//   - [Vec3]: three-component vector for positions, velocities and gravity
//   - [Clock]: read-only view of simulation time and the fixed step size
//   - sentinel errors for configuration and setup failures
//   - [SimError]: an error annotated with the step at which it happened
//
// # Clock
//
// The clock is owned by whatever advances time (the kinematic substrate in
// package sim, or an external engine). Controllers only read it:
//
//	t, dt := clock.Time(), clock.TimeStep()
package dynamo
