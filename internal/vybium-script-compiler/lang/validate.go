package lang

import "fmt"

// Validate performs the structural checks that do not need stack knowledge:
// name resolution, duplicate declarations, constant widths, and output
// references. Type agreement of operations is checked by the codegen driver
// where result types are known.
func (p *Program) Validate() error {
	seenFuncs := make(map[string]bool)
	for i := range p.Funcs {
		fn := &p.Funcs[i]
		if fn.Name == "" {
			return fmt.Errorf("function %d has no name", i)
		}
		if seenFuncs[fn.Name] {
			return fmt.Errorf("function %q declared twice", fn.Name)
		}
		seenFuncs[fn.Name] = true

		scope := newNameScope(nil)
		for _, param := range fn.Params {
			if err := scope.declare(param.Name); err != nil {
				return fmt.Errorf("function %q: %w", fn.Name, err)
			}
		}
		if err := validateBlock(p, &fn.Body, scope); err != nil {
			return fmt.Errorf("function %q: %w", fn.Name, err)
		}
		if len(fn.Body.Yield) != len(fn.Results) {
			return fmt.Errorf("function %q yields %d values, declares %d results",
				fn.Name, len(fn.Body.Yield), len(fn.Results))
		}
	}

	top := newNameScope(nil)
	if err := validateStmts(p, p.Body, top); err != nil {
		return err
	}
	for _, out := range p.Outputs {
		if !top.resolves(out) {
			return fmt.Errorf("program output %q is not a top-level local", out)
		}
	}
	return nil
}

// nameScope tracks declared names for resolution and shadowing checks.
// Shadowing is rejected outright: reusing a visible name in a nested scope
// would make the liveness tallies ambiguous.
type nameScope struct {
	outer *nameScope
	names map[string]bool
}

func newNameScope(outer *nameScope) *nameScope {
	return &nameScope{outer: outer, names: make(map[string]bool)}
}

func (s *nameScope) declare(name string) error {
	if name == "" {
		return fmt.Errorf("empty local name")
	}
	if s.resolves(name) {
		return fmt.Errorf("name %q shadows an earlier declaration", name)
	}
	s.names[name] = true
	return nil
}

func (s *nameScope) resolves(name string) bool {
	for sc := s; sc != nil; sc = sc.outer {
		if sc.names[name] {
			return true
		}
	}
	return false
}

func validateBlock(p *Program, b *Block, outer *nameScope) error {
	scope := newNameScope(outer)
	if err := validateStmts(p, b.Stmts, scope); err != nil {
		return err
	}
	for _, e := range b.Yield {
		if err := validateExpr(p, e, scope); err != nil {
			return err
		}
	}
	return nil
}

func validateStmts(p *Program, stmts []Stmt, scope *nameScope) error {
	for i, s := range stmts {
		switch st := s.(type) {
		case *LetStmt:
			if len(st.Names) == 0 {
				return fmt.Errorf("stmt %d: let with no names", i)
			}
			if len(st.Names) > 1 {
				if _, ok := st.Expr.(*CallExpr); !ok {
					return fmt.Errorf("stmt %d: multi-name let requires a call initializer", i)
				}
			}
			if err := validateExpr(p, st.Expr, scope); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
			for _, name := range st.Names {
				if err := scope.declare(name); err != nil {
					return fmt.Errorf("stmt %d: %w", i, err)
				}
			}
		case *ExprStmt:
			if err := validateExpr(p, st.Expr, scope); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
		case *TableStmt:
			if len(st.Entries) == 0 {
				return fmt.Errorf("stmt %d: table %q has no entries", i, st.Name)
			}
			width := st.EntryType.Width()
			for j, row := range st.Entries {
				if len(row) != width {
					return fmt.Errorf("stmt %d: table %q entry %d has %d limbs, want %d",
						i, st.Name, j, len(row), width)
				}
			}
			if err := scope.declare(st.Name); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
		case *IfStmt:
			if err := validateExpr(p, st.Cond, scope); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
			if err := validateBlock(p, &st.Then, scope); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
			if err := validateBlock(p, &st.Else, scope); err != nil {
				return fmt.Errorf("stmt %d: %w", i, err)
			}
			if len(st.Then.Yield) != len(st.Bind) || len(st.Else.Yield) != len(st.Bind) {
				return fmt.Errorf("stmt %d: conditional yields %d/%d values, binds %d",
					i, len(st.Then.Yield), len(st.Else.Yield), len(st.Bind))
			}
			for _, b := range st.Bind {
				if err := scope.declare(b.Name); err != nil {
					return fmt.Errorf("stmt %d: %w", i, err)
				}
			}
		default:
			return fmt.Errorf("stmt %d: unknown statement %T", i, s)
		}
	}
	return nil
}

func validateExpr(p *Program, e Expr, scope *nameScope) error {
	switch ex := e.(type) {
	case *ConstExpr:
		if len(ex.Limbs) != ex.Type.Width() {
			return fmt.Errorf("constant has %d limbs, type %s wants %d",
				len(ex.Limbs), ex.Type, ex.Type.Width())
		}
	case *RefExpr:
		if !scope.resolves(ex.Name) {
			return fmt.Errorf("reference to undeclared local %q", ex.Name)
		}
	case *BinaryExpr:
		if err := validateExpr(p, ex.X, scope); err != nil {
			return err
		}
		return validateExpr(p, ex.Y, scope)
	case *CallExpr:
		fn := p.Func(ex.Func)
		if fn == nil {
			return fmt.Errorf("call to undeclared function %q", ex.Func)
		}
		for _, a := range ex.Args {
			if err := validateExpr(p, a, scope); err != nil {
				return err
			}
		}
	case *TableReadExpr:
		if !scope.resolves(ex.Table) {
			return fmt.Errorf("read from undeclared table %q", ex.Table)
		}
	case *HintExpr:
		// always well formed; typing is the driver's concern
	default:
		return fmt.Errorf("unknown expression %T", e)
	}
	return nil
}
