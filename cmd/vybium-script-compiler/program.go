package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	vsc "github.com/vybium/vybium-script-compiler/pkg/vybium-script-compiler"
)

// JSON program format. Types are strings ("field", "bool", "composite:4"),
// expressions and statements are tagged objects with exactly one tag set.
//
//	{"let": {"names": ["x"], "expr": {"const": 42}}}
//	{"expr": {"call": {"func": "f", "args": [{"ref": "x"}]}}}
//	{"table": {"name": "tbl", "entries": [1, 2, 3]}}
//	{"if": {"cond": ..., "then": ..., "else": ..., "bind": [...]}}

type jsonProgram struct {
	Funcs   []jsonFunc  `json:"funcs,omitempty"`
	Body    []jsonStmt  `json:"body"`
	Outputs []string    `json:"outputs,omitempty"`
}

type jsonFunc struct {
	Name    string      `json:"name"`
	Params  []jsonParam `json:"params,omitempty"`
	Results []string    `json:"results,omitempty"`
	Body    jsonBlock   `json:"body"`
}

type jsonParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type jsonBlock struct {
	Stmts []jsonStmt `json:"stmts,omitempty"`
	Yield []jsonExpr `json:"yield,omitempty"`
}

type jsonStmt struct {
	Let   *jsonLet   `json:"let,omitempty"`
	Expr  *jsonExpr  `json:"expr,omitempty"`
	Table *jsonTable `json:"table,omitempty"`
	If    *jsonIf    `json:"if,omitempty"`
}

type jsonLet struct {
	Names []string `json:"names"`
	Expr  jsonExpr `json:"expr"`
}

type jsonTable struct {
	Name    string   `json:"name"`
	Entries []uint64 `json:"entries"`
}

type jsonIf struct {
	Cond jsonExpr    `json:"cond"`
	Then jsonBlock   `json:"then"`
	Else jsonBlock   `json:"else"`
	Bind []jsonParam `json:"bind,omitempty"`
}

type jsonExpr struct {
	Const     *uint64        `json:"const,omitempty"`
	Bool      *bool          `json:"bool,omitempty"`
	Ref       string         `json:"ref,omitempty"`
	Op        string         `json:"op,omitempty"`
	Args      []jsonExpr     `json:"args,omitempty"`
	Call      *jsonCall      `json:"call,omitempty"`
	TableRead *jsonTableRead `json:"table_read,omitempty"`
	Hint      string         `json:"hint,omitempty"`
}

type jsonCall struct {
	Func string     `json:"func"`
	Args []jsonExpr `json:"args,omitempty"`
}

type jsonTableRead struct {
	Table string `json:"table"`
	Index int    `json:"index"`
}

var binaryOps = map[string]vsc.BinaryOp{
	"add": vsc.Add,
	"sub": vsc.Sub,
	"mul": vsc.Mul,
	"eq":  vsc.Eq,
	"and": vsc.And,
	"or":  vsc.Or,
}

func decodeProgram(data []byte) (*vsc.Program, error) {
	var jp jsonProgram
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, err
	}

	prog := &vsc.Program{Outputs: jp.Outputs}
	for _, jf := range jp.Funcs {
		fn, err := convertFunc(jf)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", jf.Name, err)
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	body, err := convertStmts(jp.Body)
	if err != nil {
		return nil, err
	}
	prog.Body = body
	return prog, nil
}

func convertFunc(jf jsonFunc) (vsc.FuncDecl, error) {
	fn := vsc.FuncDecl{Name: jf.Name}
	for _, p := range jf.Params {
		t, err := parseType(p.Type)
		if err != nil {
			return fn, err
		}
		fn.Params = append(fn.Params, vsc.Param{Name: p.Name, Type: t})
	}
	for _, r := range jf.Results {
		t, err := parseType(r)
		if err != nil {
			return fn, err
		}
		fn.Results = append(fn.Results, t)
	}
	body, err := convertBlock(jf.Body)
	if err != nil {
		return fn, err
	}
	fn.Body = body
	return fn, nil
}

func convertBlock(jb jsonBlock) (vsc.Block, error) {
	stmts, err := convertStmts(jb.Stmts)
	if err != nil {
		return vsc.Block{}, err
	}
	var yield []vsc.Expr
	for i, je := range jb.Yield {
		e, err := convertExpr(je)
		if err != nil {
			return vsc.Block{}, fmt.Errorf("yield %d: %w", i, err)
		}
		yield = append(yield, e)
	}
	return vsc.Block{Stmts: stmts, Yield: yield}, nil
}

func convertStmts(jstmts []jsonStmt) ([]vsc.Stmt, error) {
	var out []vsc.Stmt
	for i, js := range jstmts {
		s, err := convertStmt(js)
		if err != nil {
			return nil, fmt.Errorf("stmt %d: %w", i, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func convertStmt(js jsonStmt) (vsc.Stmt, error) {
	switch {
	case js.Let != nil:
		e, err := convertExpr(js.Let.Expr)
		if err != nil {
			return nil, err
		}
		return vsc.LetMulti(js.Let.Names, e), nil

	case js.Expr != nil:
		e, err := convertExpr(*js.Expr)
		if err != nil {
			return nil, err
		}
		return &vsc.ExprStmt{Expr: e}, nil

	case js.Table != nil:
		return vsc.Table(js.Table.Name, js.Table.Entries...), nil

	case js.If != nil:
		cond, err := convertExpr(js.If.Cond)
		if err != nil {
			return nil, err
		}
		then, err := convertBlock(js.If.Then)
		if err != nil {
			return nil, err
		}
		els, err := convertBlock(js.If.Else)
		if err != nil {
			return nil, err
		}
		var bind []vsc.Binding
		for _, b := range js.If.Bind {
			t, err := parseType(b.Type)
			if err != nil {
				return nil, err
			}
			bind = append(bind, vsc.Binding{Name: b.Name, Type: t})
		}
		return &vsc.IfStmt{Cond: cond, Then: then, Else: els, Bind: bind}, nil

	default:
		return nil, fmt.Errorf("statement has no recognized tag")
	}
}

func convertExpr(je jsonExpr) (vsc.Expr, error) {
	switch {
	case je.Const != nil:
		return vsc.Const(*je.Const), nil

	case je.Bool != nil:
		return vsc.ConstBool(*je.Bool), nil

	case je.Ref != "":
		return vsc.Ref(je.Ref), nil

	case je.Op != "":
		op, ok := binaryOps[je.Op]
		if !ok {
			return nil, fmt.Errorf("unknown operator %q", je.Op)
		}
		if len(je.Args) != 2 {
			return nil, fmt.Errorf("operator %q takes 2 operands, got %d", je.Op, len(je.Args))
		}
		x, err := convertExpr(je.Args[0])
		if err != nil {
			return nil, err
		}
		y, err := convertExpr(je.Args[1])
		if err != nil {
			return nil, err
		}
		return vsc.Binary(op, x, y), nil

	case je.Call != nil:
		var args []vsc.Expr
		for _, ja := range je.Call.Args {
			a, err := convertExpr(ja)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return vsc.Call(je.Call.Func, args...), nil

	case je.TableRead != nil:
		return vsc.TableRead(je.TableRead.Table, je.TableRead.Index), nil

	case je.Hint != "":
		t, err := parseType(je.Hint)
		if err != nil {
			return nil, err
		}
		return vsc.Hint(t), nil

	default:
		return nil, fmt.Errorf("expression has no recognized tag")
	}
}

func parseType(s string) (vsc.Type, error) {
	switch {
	case s == "field":
		return vsc.FieldType(), nil
	case s == "bool":
		return vsc.BoolType(), nil
	case strings.HasPrefix(s, "composite:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "composite:"))
		if err != nil || n < 2 {
			return vsc.Type{}, fmt.Errorf("invalid composite width in %q", s)
		}
		return vsc.CompositeType(n), nil
	default:
		return vsc.Type{}, fmt.Errorf("unknown type %q", s)
	}
}
