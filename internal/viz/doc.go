// Package viz renders running simulations in the terminal.
//
// The package implements a live view using the Bubble Tea framework:
//
//   - [Model]: interactive view that steps an assembled scenario
//   - [Canvas]: braille pixel canvas the entities draw onto
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset the scenario
//	+/-   - Integrate faster/slower
//	G     - Toggle GIF recording
//	?     - Show help overlay
//	Q     - Quit
//
// Recordings are saved as <scenario>.gif in the working directory.
package viz
