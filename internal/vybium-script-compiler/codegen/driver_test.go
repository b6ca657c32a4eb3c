package codegen

import (
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/utils"
)

func compileRun(t *testing.T, prog *lang.Program, cfg *utils.Config, witness []field.Element) (*Result, *script.Result) {
	t.Helper()
	res, err := Compile(prog, cfg)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	exec, err := script.Execute(res.Script, witness)
	if err != nil {
		t.Fatalf("Execute failed:\n%s\nerror: %v", res.Script, err)
	}
	return res, exec
}

func wantStack(t *testing.T, exec *script.Result, want ...uint64) {
	t.Helper()
	if len(exec.Stack) != len(want) {
		t.Fatalf("final stack %v, want %v", exec.Stack, want)
	}
	for i, w := range want {
		if !exec.Stack[i].Equal(field.New(w)) {
			t.Fatalf("final stack %v, want %v", exec.Stack, want)
		}
	}
}

// TestCompileArithmetic tests straight-line arithmetic down to the declared
// outputs
func TestCompileArithmetic(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("x", lang.Binary(lang.Add, lang.Const(2), lang.Const(3))),
			lang.Let("y", lang.Binary(lang.Mul, lang.Ref("x"), lang.Const(4))),
		},
		Outputs: []string{"y"},
	}
	res, exec := compileRun(t, prog, nil, nil)

	wantStack(t, exec, 20)
	if len(exec.Alt) != 0 {
		t.Errorf("alt stack not empty: %v", exec.Alt)
	}
	if len(res.Outputs) != 1 || res.Outputs[0].Name != "y" {
		t.Errorf("Outputs = %v, want [y]", res.Outputs)
	}
}

// TestOutputOrder tests that outputs land first declared deepest and
// everything else is torn down
func TestOutputOrder(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("a", lang.Const(1)),
			lang.Let("scratch", lang.Const(99)),
			lang.Let("b", lang.Const(2)),
			lang.Let("c", lang.Const(3)),
		},
		Outputs: []string{"a", "b", "c"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 1, 2, 3)
}

// TestModeledDepthMatchesExecution tests the tracker's high-water mark
// against the reference executor's
func TestModeledDepthMatchesExecution(t *testing.T) {
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{{
			Name:    "wide",
			Params:  []lang.Param{{Name: "n", Type: lang.Field()}},
			Results: []lang.Type{lang.Field()},
			Body: lang.Block{
				Stmts: []lang.Stmt{
					lang.Let("t1", lang.Binary(lang.Mul, lang.Ref("n"), lang.Ref("n"))),
					lang.Let("t2", lang.Binary(lang.Add, lang.Ref("t1"), lang.Const(1))),
				},
				Yield: []lang.Expr{lang.Ref("t2")},
			},
		}},
		Body: []lang.Stmt{
			lang.Table("tbl", 5, 6, 7),
			lang.Let("x", lang.TableRead("tbl", 2)),
			lang.Let("y", lang.Call("wide", lang.Ref("x"))),
		},
		Outputs: []string{"y"},
	}
	res, exec := compileRun(t, prog, nil, nil)

	wantStack(t, exec, 50)
	if res.MaxStackDepth != exec.MaxDepth {
		t.Errorf("modeled max depth %d, executed max depth %d", res.MaxStackDepth, exec.MaxDepth)
	}
}

// TestAutoMoveSavesInstructions tests that the liveness pass moves last
// reads instead of copying, without changing results
func TestAutoMoveSavesInstructions(t *testing.T) {
	prog := func() *lang.Program {
		return &lang.Program{
			Body: []lang.Stmt{
				lang.Let("a", lang.Const(3)),
				lang.Let("b", lang.Const(4)),
				lang.Let("c", lang.Binary(lang.Mul, lang.Ref("a"), lang.Ref("b"))),
			},
			Outputs: []string{"c"},
		}
	}

	moved, execMoved := compileRun(t, prog(), nil, nil)
	copied, execCopied := compileRun(t, prog(), utils.DefaultConfig().WithAutoMove(false), nil)

	wantStack(t, execMoved, 12)
	wantStack(t, execCopied, 12)
	if len(moved.Script) >= len(copied.Script) {
		t.Errorf("auto-move script has %d instructions, copy-only has %d",
			len(moved.Script), len(copied.Script))
	}
}

// TestHintFlow tests witness consumption through compilation: the classic
// shape is verifying a hinted result instead of computing it
func TestHintFlow(t *testing.T) {
	// claim: hint q satisfies q * 3 == 21
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("q", lang.Hint(lang.Field())),
			lang.Let("ok", lang.Binary(lang.Eq,
				lang.Binary(lang.Mul, lang.Ref("q"), lang.Const(3)),
				lang.Const(21))),
		},
		Outputs: []string{"q", "ok"},
	}
	res, exec := compileRun(t, prog, nil, []field.Element{field.New(7)})

	wantStack(t, exec, 7, 1)
	if len(res.Hints) != 1 {
		t.Fatalf("manifest has %d entries, want 1", len(res.Hints))
	}
	if res.Hints[0].Name != "q" || res.Hints[0].Seq != 0 {
		t.Errorf("manifest[0] = %+v, want Seq 0 Name q", res.Hints[0])
	}
	if exec.WitnessUsed != 1 {
		t.Errorf("WitnessUsed = %d, want 1", exec.WitnessUsed)
	}
}

// TestConditional tests both arms of a compiled conditional, selected by a
// witness at run time
func TestConditional(t *testing.T) {
	prog := func() *lang.Program {
		return &lang.Program{
			Body: []lang.Stmt{
				lang.Let("base", lang.Const(100)),
				lang.Let("flag", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					// both arms read the outer local; each arm's scratch
					// dies inside the arm
					Cond: lang.Ref("flag"),
					Then: lang.Block{
						Stmts: []lang.Stmt{
							lang.Let("t", lang.Binary(lang.Add, lang.Ref("base"), lang.Const(11))),
						},
						Yield: []lang.Expr{lang.Ref("t")},
					},
					Else: lang.Block{
						Yield: []lang.Expr{lang.Binary(lang.Sub, lang.Ref("base"), lang.Const(1))},
					},
					Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
				},
				lang.Let("sum", lang.Binary(lang.Add, lang.Ref("z"), lang.Ref("base"))),
			},
			Outputs: []string{"sum"},
		}
	}

	t.Run("ThenArm", func(t *testing.T) {
		_, exec := compileRun(t, prog(), nil, []field.Element{field.New(1)})
		wantStack(t, exec, 211)
	})

	t.Run("ElseArm", func(t *testing.T) {
		_, exec := compileRun(t, prog(), nil, []field.Element{field.New(0)})
		wantStack(t, exec, 199)
	})
}

// TestNestedConditionals tests two levels of branching
func TestNestedConditionals(t *testing.T) {
	prog := func() *lang.Program {
		inner := &lang.IfStmt{
			Cond: lang.Ref("b"),
			Then: lang.Block{Yield: []lang.Expr{lang.Const(1)}},
			Else: lang.Block{Yield: []lang.Expr{lang.Const(2)}},
			Bind: []lang.Binding{{Name: "lo", Type: lang.Field()}},
		}
		return &lang.Program{
			Body: []lang.Stmt{
				lang.Let("a", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				lang.Let("b", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					Cond: lang.Ref("a"),
					Then: lang.Block{
						Stmts: []lang.Stmt{inner},
						Yield: []lang.Expr{lang.Binary(lang.Add, lang.Ref("lo"), lang.Const(10))},
					},
					Else: lang.Block{Yield: []lang.Expr{lang.Const(0)}},
					Bind: []lang.Binding{{Name: "out", Type: lang.Field()}},
				},
			},
			Outputs: []string{"out"},
		}
	}

	cases := []struct {
		name string
		a, b uint64
		want uint64
	}{
		{"BothTaken", 1, 1, 11},
		{"OuterOnly", 1, 0, 12},
		{"NeitherTaken", 0, 0, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, exec := compileRun(t, prog(), nil,
				[]field.Element{field.New(c.a), field.New(c.b)})
			wantStack(t, exec, c.want)
		})
	}
}

// TestBranchShapeMismatch tests that arms yielding different types fail
func TestBranchShapeMismatch(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			&lang.IfStmt{
				Cond: lang.ConstBool(true),
				Then: lang.Block{Yield: []lang.Expr{lang.Const(1)}},
				Else: lang.Block{Yield: []lang.Expr{lang.ConstBool(false)}},
				Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
			},
		},
		Outputs: []string{"z"},
	}
	_, err := Compile(prog, nil)
	if CodeOf(err) != ErrBranchShapeMismatch {
		t.Errorf("error code = %v, want ErrBranchShapeMismatch", CodeOf(err))
	}
}

// TestStackDepthExceeded tests the configured VM limit. The operands of d
// are also outputs, so computing d copies them and grows the stack past
// the declarations.
func TestStackDepthExceeded(t *testing.T) {
	prog := func() *lang.Program {
		return &lang.Program{
			Body: []lang.Stmt{
				lang.Let("a", lang.Const(1)),
				lang.Let("b", lang.Const(2)),
				lang.Let("c", lang.Const(3)),
				lang.Let("d", lang.Binary(lang.Add, lang.Ref("a"), lang.Ref("b"))),
			},
			Outputs: []string{"a", "b", "d"},
		}
	}

	if _, err := Compile(prog(), utils.DefaultConfig().WithMaxStackDepth(4)); CodeOf(err) != ErrStackDepthExceeded {
		t.Errorf("error code = %v, want ErrStackDepthExceeded", CodeOf(err))
	}
	res, err := Compile(prog(), utils.DefaultConfig().WithMaxStackDepth(5))
	if err != nil {
		t.Fatalf("compile under sufficient limit failed: %v", err)
	}
	if res.MaxStackDepth != 5 {
		t.Errorf("MaxStackDepth = %d, want 5", res.MaxStackDepth)
	}
}

// TestInvalidPrograms tests structural rejection before code generation
func TestInvalidPrograms(t *testing.T) {
	cases := []struct {
		name string
		prog *lang.Program
	}{
		{"UndeclaredRef", &lang.Program{
			Body:    []lang.Stmt{lang.Let("x", lang.Ref("ghost"))},
			Outputs: []string{"x"},
		}},
		{"OutputNotALocal", &lang.Program{
			Body:    []lang.Stmt{lang.Let("x", lang.Const(1))},
			Outputs: []string{"y"},
		}},
		{"Shadowing", &lang.Program{
			Body: []lang.Stmt{
				lang.Let("x", lang.Const(1)),
				lang.Let("x", lang.Const(2)),
			},
			Outputs: []string{"x"},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Compile(c.prog, nil); CodeOf(err) != ErrInvalidProgram {
				t.Errorf("error code = %v, want ErrInvalidProgram", CodeOf(err))
			}
		})
	}
}

// TestTypeMismatch tests operator typing in the driver
func TestTypeMismatch(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("x", lang.Binary(lang.Add, lang.Const(1), lang.ConstBool(true))),
		},
		Outputs: []string{"x"},
	}
	if _, err := Compile(prog, nil); CodeOf(err) != ErrInvalidProgram {
		t.Errorf("error code = %v, want ErrInvalidProgram", CodeOf(err))
	}
}

// TestExprStmtDropsResult tests that a bare expression leaves no residue
func TestExprStmtDropsResult(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("x", lang.Const(5)),
			&lang.ExprStmt{Expr: lang.Binary(lang.Mul, lang.Ref("x"), lang.Const(2))},
		},
		Outputs: []string{"x"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 5)
}

// TestHintInsideConditionalRejected tests that witness hints cannot be
// consumed inside a conditional arm. A witness marker in the untaken arm
// is skipped at run time, which would shift every later hint onto the
// wrong queue entry while the manifest still lists all of them.
func TestHintInsideConditionalRejected(t *testing.T) {
	t.Run("DirectHint", func(t *testing.T) {
		prog := &lang.Program{
			Body: []lang.Stmt{
				lang.Let("flag", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					Cond: lang.Ref("flag"),
					Then: lang.Block{Yield: []lang.Expr{lang.Hint(lang.Field())}},
					Else: lang.Block{Yield: []lang.Expr{lang.Const(0)}},
					Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
				},
				lang.Let("w", lang.Hint(lang.Field())),
			},
			Outputs: []string{"z", "w"},
		}
		if _, err := Compile(prog, nil); CodeOf(err) != ErrInvalidProgram {
			t.Errorf("error code = %v, want ErrInvalidProgram", CodeOf(err))
		}
	})

	t.Run("HintViaCall", func(t *testing.T) {
		// the hint hides inside a function body compiled under the arm
		prog := &lang.Program{
			Funcs: []lang.FuncDecl{{
				Name:    "draw",
				Results: []lang.Type{lang.Field()},
				Body:    lang.Block{Yield: []lang.Expr{lang.Hint(lang.Field())}},
			}},
			Body: []lang.Stmt{
				lang.Let("flag", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					Cond: lang.Ref("flag"),
					Then: lang.Block{Yield: []lang.Expr{lang.Call("draw")}},
					Else: lang.Block{Yield: []lang.Expr{lang.Const(0)}},
					Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
				},
			},
			Outputs: []string{"z"},
		}
		if _, err := Compile(prog, nil); CodeOf(err) != ErrInvalidProgram {
			t.Errorf("error code = %v, want ErrInvalidProgram", CodeOf(err))
		}
	})

	t.Run("HintsAroundConditionalStillSequence", func(t *testing.T) {
		prog := &lang.Program{
			Body: []lang.Stmt{
				lang.Let("flag", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					Cond: lang.Ref("flag"),
					Then: lang.Block{Yield: []lang.Expr{lang.Const(1)}},
					Else: lang.Block{Yield: []lang.Expr{lang.Const(0)}},
					Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
				},
				lang.Let("w", lang.Hint(lang.Field())),
			},
			Outputs: []string{"z", "w"},
		}
		// else arm taken; the second hint must still land on queue entry 1
		res, exec := compileRun(t, prog, nil,
			[]field.Element{field.New(0), field.New(42)})
		wantStack(t, exec, 0, 42)
		if len(res.Hints) != 2 || res.Hints[1].Name != "w" || res.Hints[1].Seq != 1 {
			t.Errorf("manifest = %+v, want two entries with w at seq 1", res.Hints)
		}
		if exec.WitnessUsed != 2 {
			t.Errorf("WitnessUsed = %d, want 2", exec.WitnessUsed)
		}
	})
}

// TestNoOutputs tests that a program may tear down to an empty stack
func TestNoOutputs(t *testing.T) {
	prog := &lang.Program{
		Body: []lang.Stmt{
			lang.Let("x", lang.Const(5)),
			lang.Table("tbl", 1, 2, 3),
			lang.Let("y", lang.TableRead("tbl", 0)),
		},
	}
	res, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec)
	if len(res.FinalLayout) != 0 {
		t.Errorf("FinalLayout = %v, want empty", res.FinalLayout)
	}
}
