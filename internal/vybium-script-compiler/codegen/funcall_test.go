package codegen

import (
	"testing"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
)

func addFunc() lang.FuncDecl {
	return lang.FuncDecl{
		Name: "add",
		Params: []lang.Param{
			{Name: "a", Type: lang.Field()},
			{Name: "b", Type: lang.Field()},
		},
		Results: []lang.Type{lang.Field()},
		Body: lang.Block{
			Yield: []lang.Expr{lang.Binary(lang.Add, lang.Ref("a"), lang.Ref("b"))},
		},
	}
}

// TestCallBasic tests a single call with literal arguments
func TestCallBasic(t *testing.T) {
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{addFunc()},
		Body: []lang.Stmt{
			lang.Let("z", lang.Call("add", lang.Const(2), lang.Const(40))),
		},
		Outputs: []string{"z"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 42)
}

// TestCallArgumentOrder tests that arguments align to declared parameter
// order no matter how the caller's stack is laid out
func TestCallArgumentOrder(t *testing.T) {
	sub := lang.FuncDecl{
		Name: "sub",
		Params: []lang.Param{
			{Name: "hi", Type: lang.Field()},
			{Name: "lo", Type: lang.Field()},
		},
		Results: []lang.Type{lang.Field()},
		Body: lang.Block{
			Yield: []lang.Expr{lang.Binary(lang.Sub, lang.Ref("hi"), lang.Ref("lo"))},
		},
	}
	// y is declared after x, so it sits above x at the call; the call
	// still receives hi=x, lo=y
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{sub},
		Body: []lang.Stmt{
			lang.Let("x", lang.Const(50)),
			lang.Let("y", lang.Const(8)),
			lang.Let("z", lang.Call("sub", lang.Ref("x"), lang.Ref("y"))),
		},
		Outputs: []string{"z"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 42)
}

// TestCallerValuesSurvive tests that the frame teardown only clears the
// callee's values
func TestCallerValuesSurvive(t *testing.T) {
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{addFunc()},
		Body: []lang.Stmt{
			lang.Let("keep", lang.Const(7)),
			lang.Let("z", lang.Call("add", lang.Const(1), lang.Const(2))),
			lang.Let("sum", lang.Binary(lang.Add, lang.Ref("keep"), lang.Ref("z"))),
		},
		Outputs: []string{"sum"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 10)
}

// TestSameArgumentTwice tests passing one local for both parameters
func TestSameArgumentTwice(t *testing.T) {
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{addFunc()},
		Body: []lang.Stmt{
			lang.Let("x", lang.Const(21)),
			lang.Let("z", lang.Call("add", lang.Ref("x"), lang.Ref("x"))),
		},
		Outputs: []string{"z"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 42)
}

// TestNestedCalls tests a call in argument position
func TestNestedCalls(t *testing.T) {
	double := lang.FuncDecl{
		Name:    "double",
		Params:  []lang.Param{{Name: "n", Type: lang.Field()}},
		Results: []lang.Type{lang.Field()},
		Body: lang.Block{
			Yield: []lang.Expr{lang.Binary(lang.Mul, lang.Ref("n"), lang.Const(2))},
		},
	}
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{addFunc(), double},
		Body: []lang.Stmt{
			lang.Let("z", lang.Call("add",
				lang.Call("double", lang.Const(10)),
				lang.Call("double", lang.Const(11)))),
		},
		Outputs: []string{"z"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 42)
}

// TestMultiResultCall tests binding several results of one call
func TestMultiResultCall(t *testing.T) {
	minmax := lang.FuncDecl{
		Name: "succpred",
		Params: []lang.Param{
			{Name: "n", Type: lang.Field()},
		},
		Results: []lang.Type{lang.Field(), lang.Field()},
		Body: lang.Block{
			Stmts: []lang.Stmt{
				lang.Let("up", lang.Binary(lang.Add, lang.Ref("n"), lang.Const(1))),
				lang.Let("down", lang.Binary(lang.Sub, lang.Ref("n"), lang.Const(1))),
			},
			Yield: []lang.Expr{lang.Ref("up"), lang.Ref("down")},
		},
	}
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{minmax},
		Body: []lang.Stmt{
			lang.LetMulti([]string{"s", "p"}, lang.Call("succpred", lang.Const(10))),
		},
		Outputs: []string{"s", "p"},
	}
	_, exec := compileRun(t, prog, nil, nil)
	wantStack(t, exec, 11, 9)
}

// TestCalleeScopeIsolation tests that a body cannot see caller locals
func TestCalleeScopeIsolation(t *testing.T) {
	leaky := lang.FuncDecl{
		Name:    "leaky",
		Params:  []lang.Param{{Name: "n", Type: lang.Field()}},
		Results: []lang.Type{lang.Field()},
		Body: lang.Block{
			Yield: []lang.Expr{lang.Binary(lang.Add, lang.Ref("n"), lang.Ref("secret"))},
		},
	}
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{leaky},
		Body: []lang.Stmt{
			lang.Let("secret", lang.Const(1)),
			lang.Let("z", lang.Call("leaky", lang.Const(2))),
		},
		Outputs: []string{"z"},
	}
	if _, err := Compile(prog, nil); CodeOf(err) != ErrInvalidProgram {
		t.Errorf("error code = %v, want ErrInvalidProgram", CodeOf(err))
	}
}

// TestCallSignatureMismatch tests arity and type checks at the call site
func TestCallSignatureMismatch(t *testing.T) {
	t.Run("Arity", func(t *testing.T) {
		prog := &lang.Program{
			Funcs: []lang.FuncDecl{addFunc()},
			Body: []lang.Stmt{
				lang.Let("z", lang.Call("add", lang.Const(1))),
			},
			Outputs: []string{"z"},
		}
		if _, err := Compile(prog, nil); CodeOf(err) != ErrCallSignatureMismatch {
			t.Errorf("error code = %v, want ErrCallSignatureMismatch", CodeOf(err))
		}
	})

	t.Run("ArgumentType", func(t *testing.T) {
		prog := &lang.Program{
			Funcs: []lang.FuncDecl{addFunc()},
			Body: []lang.Stmt{
				lang.Let("z", lang.Call("add", lang.Const(1), lang.ConstBool(true))),
			},
			Outputs: []string{"z"},
		}
		if _, err := Compile(prog, nil); CodeOf(err) != ErrCallSignatureMismatch {
			t.Errorf("error code = %v, want ErrCallSignatureMismatch", CodeOf(err))
		}
	})
}

// TestReturnShapeMismatch tests the declared-result check
func TestReturnShapeMismatch(t *testing.T) {
	wrong := lang.FuncDecl{
		Name:    "wrong",
		Params:  []lang.Param{{Name: "n", Type: lang.Field()}},
		Results: []lang.Type{lang.Bool()},
		Body: lang.Block{
			Yield: []lang.Expr{lang.Binary(lang.Add, lang.Ref("n"), lang.Const(1))},
		},
	}
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{wrong},
		Body: []lang.Stmt{
			lang.Let("z", lang.Call("wrong", lang.Const(1))),
		},
		Outputs: []string{"z"},
	}
	if _, err := Compile(prog, nil); CodeOf(err) != ErrReturnShapeMismatch {
		t.Errorf("error code = %v, want ErrReturnShapeMismatch", CodeOf(err))
	}
}

// TestCallInsideConditional tests frames nested in branch arms
func TestCallInsideConditional(t *testing.T) {
	prog := func() *lang.Program {
		return &lang.Program{
			Funcs: []lang.FuncDecl{addFunc()},
			Body: []lang.Stmt{
				lang.Let("base", lang.Const(5)),
				lang.Let("flag", lang.Binary(lang.Eq, lang.Hint(lang.Field()), lang.Const(1))),
				&lang.IfStmt{
					Cond: lang.Ref("flag"),
					Then: lang.Block{
						Yield: []lang.Expr{lang.Call("add", lang.Ref("base"), lang.Const(100))},
					},
					Else: lang.Block{
						Yield: []lang.Expr{lang.Ref("base")},
					},
					Bind: []lang.Binding{{Name: "z", Type: lang.Field()}},
				},
			},
			Outputs: []string{"z"},
		}
	}

	t.Run("ThenArm", func(t *testing.T) {
		_, exec := compileRun(t, prog(), nil, []field.Element{field.New(1)})
		wantStack(t, exec, 105)
	})
	t.Run("ElseArm", func(t *testing.T) {
		_, exec := compileRun(t, prog(), nil, []field.Element{field.New(0)})
		wantStack(t, exec, 5)
	})
}

// TestHintInsideFunction tests that hint sequencing spans call frames
func TestHintInsideFunction(t *testing.T) {
	guess := lang.FuncDecl{
		Name:    "verifySquare",
		Params:  []lang.Param{{Name: "n", Type: lang.Field()}},
		Results: []lang.Type{lang.Bool()},
		Body: lang.Block{
			Stmts: []lang.Stmt{
				lang.Let("root", lang.Hint(lang.Field())),
			},
			Yield: []lang.Expr{lang.Binary(lang.Eq,
				lang.Binary(lang.Mul, lang.Ref("root"), lang.Ref("root")),
				lang.Ref("n"))},
		},
	}
	prog := &lang.Program{
		Funcs: []lang.FuncDecl{guess},
		Body: []lang.Stmt{
			lang.Let("w", lang.Hint(lang.Field())),
			lang.Let("ok", lang.Call("verifySquare", lang.Ref("w"))),
		},
		Outputs: []string{"ok"},
	}
	res, exec := compileRun(t, prog, nil,
		[]field.Element{field.New(49), field.New(7)})

	wantStack(t, exec, 1)
	if len(res.Hints) != 2 {
		t.Fatalf("manifest has %d entries, want 2", len(res.Hints))
	}
	if res.Hints[0].Name != "w" || res.Hints[1].Name != "root" {
		t.Errorf("manifest names = %q %q, want w root", res.Hints[0].Name, res.Hints[1].Name)
	}
}
