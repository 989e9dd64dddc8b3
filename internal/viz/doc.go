// Package viz renders the experiment in the terminal.
//
// [Model] is a Bubble Tea program that steps a simulator in batches and
// shows the container cross-section on a braille [Canvas] next to the
// controller state and a plot of the floor position. The plotting helpers
// in plot.go are shared with the non-interactive CLI commands.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart the run
//	+/-   - Double/halve steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
