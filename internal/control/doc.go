// Package control drives the floor and the insertion region of a segregation
// experiment through its time-phased schedule.
//
// [PhaseController] is invoked once per step, after time has advanced:
//
//   - Filling: the insertion region keeps its configured flow rate
//   - flow shutoff: on the one step whose interval [t, t+dt) straddles
//     stop_flow, the flow rate is set to zero
//   - WaitingForKick / Kicking: each time t passes the kick threshold the
//     floor velocity is set to amplitude*(-1)^n and the threshold moves on by
//     one pulse interval
//   - Resting: from stop_kick on, the floor velocity is forced to zero on
//     every step
//
// # Usage
//
//	ctrl, err := control.New(cfg.Schedule, sc.Insertion, sc.Floor)
//	for ... {
//	    clock.Advance()
//	    ctrl.Step(clock)
//	}
//
// The shutoff is edge-triggered. A step size that makes t+dt land exactly
// on stop_flow skips it and the flow is never shut off.
package control
