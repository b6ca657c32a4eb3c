// Package vybiumscriptcompiler provides a compiler from structured programs
// to linear stack-machine scripts for the Vybium script VM.
//
// The target VM is Bitcoin-script shaped: there are no registers and no
// load/store, the only addressing mode is a distance from the top of the
// operand stack, and that distance is fixed at compile time. The compiler
// maintains a complete symbolic model of the stack at every program point
// and lowers each variable reference into the cheapest copy or move
// reaching its current depth.
//
// # Features
//
// - Named locals with compile-time stack allocation
// - Liveness-driven copy/move selection (last read moves, earlier reads copy)
// - Functions compiled per call site with automatic frame teardown
// - Conditionals with shape-checked joins across both arms
// - Read-only lookup tables resident on the stack
// - Witness hints with an ordered manifest for the trace generator
// - A reference executor for simulating compiled scripts
//
// # Quick Start
//
// Compiling and simulating a program:
//
//	prog := &vybiumscriptcompiler.Program{
//		Body: []vybiumscriptcompiler.Stmt{
//			vybiumscriptcompiler.Let("x", vybiumscriptcompiler.Const(2)),
//			vybiumscriptcompiler.Let("y", vybiumscriptcompiler.Binary(
//				vybiumscriptcompiler.Mul,
//				vybiumscriptcompiler.Ref("x"),
//				vybiumscriptcompiler.Const(21))),
//		},
//		Outputs: []string{"y"},
//	}
//
//	compiled, err := vybiumscriptcompiler.Compile(prog, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := compiled.Simulate(nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.Stack) // [42]
//
// # Architecture
//
// The module uses a hybrid public/private architecture:
//
// - pkg/vybium-script-compiler/: Public API (this package)
// - internal/vybium-script-compiler/: Private implementation (not importable)
//
// The private implementation is split into the program representation
// (lang), the symbolic stack model (stack), the instruction vocabulary and
// reference executor (script), and the code generator (codegen).
//
// # Hints
//
// A hint reserves stack slots for a value the script cannot compute itself
// and that an external trace generator supplies at run time. Compilation
// returns a manifest listing every hint in consumption order; the witness
// queue handed to the VM must follow that order exactly.
//
// # License
//
// See LICENSE file in the repository root.
package vybiumscriptcompiler
