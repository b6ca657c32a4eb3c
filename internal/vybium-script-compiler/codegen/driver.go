// Package codegen lowers a structured program into the target VM's linear
// instruction sequence. A single mutable stack model is threaded through a
// program-order walk; each compilation owns its own model, so independent
// compilations can run in parallel.
package codegen

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/script"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/stack"
	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/utils"
)

// OutputSlot describes one declared program output in the final layout,
// first declared deepest
type OutputSlot struct {
	Name string
	Type lang.Type
}

// Result is a successful compilation: the instruction sequence, the hint
// manifest for the trace generator, the stack high-water mark for VM-limit
// validation, and the final output layout
type Result struct {
	Script        script.Script
	Hints         []HintSlot
	MaxStackDepth int
	Outputs       []OutputSlot
	FinalLayout   []stack.Block
}

// Compiler drives code generation for one program. It owns the tracker,
// the value registry, and the instruction builder; nothing here is shared
// across compilations.
type Compiler struct {
	cfg  *utils.Config
	log  zerolog.Logger
	prog *lang.Program

	tr     *stack.Tracker
	b      *script.Builder
	em     *emitter
	reg    *registry
	hints  *hintAllocator
	tables *tableManager

	scopes []*scope
	counts []lang.ReadCounts

	// branchBase holds the registry watermark of each open conditional;
	// values older than the innermost watermark are only copied inside
	// arms, so both arms leave them in place
	branchBase []lang.ValueID

	outputSet map[string]bool
}

// scope is one name-resolution level. A barrier scope is a function frame:
// resolution does not look past it, so callee bodies see only their own
// parameters and locals.
type scope struct {
	names   map[string]lang.ValueID
	tables  map[string]*tableHandle
	barrier bool
}

// Compile lowers the program under the given configuration
func Compile(prog *lang.Program, cfg *utils.Config) (*Result, error) {
	if cfg == nil {
		cfg = utils.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Code: ErrInvalidConfig, Message: err.Error(), Cause: err}
	}
	if err := prog.Validate(); err != nil {
		return nil, &Error{Code: ErrInvalidProgram, Message: err.Error(), Cause: err}
	}

	c := &Compiler{
		cfg:       cfg,
		log:       cfg.Logger,
		prog:      prog,
		tr:        stack.New(),
		b:         script.NewBuilder(),
		reg:       newRegistry(),
		hints:     newHintAllocator(),
		tables:    newTableManager(),
		outputSet: make(map[string]bool, len(prog.Outputs)),
	}
	c.em = newEmitter(c.b, c.tr, c.reg)
	for _, name := range prog.Outputs {
		c.outputSet[name] = true
	}

	c.pushFrameScope()
	c.pushCounts(lang.CountReads(prog.Body, nil, prog.Outputs))

	if err := c.compileStmts(prog.Body, "body"); err != nil {
		return nil, err
	}
	outputs, err := c.emitOutputs()
	if err != nil {
		return nil, err
	}
	if err := c.checkDepth("epilogue"); err != nil {
		return nil, err
	}

	res := &Result{
		Script:        c.b.Script(),
		Hints:         c.hints.manifest,
		MaxStackDepth: c.tr.MaxHeight(),
		Outputs:       outputs,
		FinalLayout:   c.tr.Layout(),
	}
	c.log.Debug().
		Int("instructions", len(res.Script)).
		Int("hints", len(res.Hints)).
		Int("max_depth", res.MaxStackDepth).
		Msg("compilation complete")
	return res, nil
}

// ========== statement walk ==========

func (c *Compiler) compileStmts(stmts []lang.Stmt, where string) error {
	for i, s := range stmts {
		loc := fmt.Sprintf("%s[%d]", where, i)
		if err := c.compileStmt(s, loc); err != nil {
			return err
		}
		if err := c.checkDepth(loc); err != nil {
			return err
		}
		c.log.Trace().Str("stmt", loc).Int("height", c.tr.Height()).Msg("compiled")
	}
	return nil
}

func (c *Compiler) compileStmt(s lang.Stmt, where string) error {
	switch st := s.(type) {
	case *lang.LetStmt:
		if len(st.Names) > 1 {
			call := st.Expr.(*lang.CallExpr)
			ids, err := c.compileCallExpr(call, where)
			if err != nil {
				return err
			}
			if len(ids) != len(st.Names) {
				return &Error{Code: ErrInvalidProgram, Where: where,
					Message: fmt.Sprintf("call to %q yields %d values, let binds %d",
						call.Func, len(ids), len(st.Names))}
			}
			for i, name := range st.Names {
				c.bindName(name, ids[i])
			}
			return nil
		}
		id, err := c.compileExpr(st.Expr, where)
		if err != nil {
			return err
		}
		c.bindName(st.Names[0], id)
		return nil

	case *lang.ExprStmt:
		id, err := c.compileExpr(st.Expr, where)
		if err != nil {
			return err
		}
		return c.em.dropTop(id)

	case *lang.TableStmt:
		h, err := c.tables.declare(c.em, st)
		if err != nil {
			return err
		}
		c.curScope().tables[st.Name] = h
		return nil

	case *lang.IfStmt:
		return c.compileIf(st, where)

	default:
		return &Error{Code: ErrInvalidProgram, Where: where,
			Message: fmt.Sprintf("unknown statement %T", s)}
	}
}

// ========== expression walk ==========

// compileExpr lowers an expression and leaves its result on top of the
// stack, returning the result's value ID. Dispatch is exhaustive over the
// closed expression set.
func (c *Compiler) compileExpr(e lang.Expr, where string) (lang.ValueID, error) {
	switch ex := e.(type) {
	case *lang.ConstExpr:
		return c.em.pushConst(ex.Type, ex.Limbs), nil

	case *lang.RefExpr:
		id, ok := c.resolve(ex.Name)
		if !ok {
			if _, isTable := c.resolveTable(ex.Name); isTable {
				return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
					Message: fmt.Sprintf("%q is a lookup table; read it by index", ex.Name)}
			}
			return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
				Message: fmt.Sprintf("undeclared local %q", ex.Name)}
		}
		return c.materializeAuto(id, where)

	case *lang.BinaryExpr:
		return c.compileBinary(ex, where)

	case *lang.CallExpr:
		ids, err := c.compileCallExpr(ex, where)
		if err != nil {
			return lang.NoValue, err
		}
		if len(ids) != 1 {
			return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
				Message: fmt.Sprintf("call to %q yields %d values in expression position", ex.Func, len(ids))}
		}
		return ids[0], nil

	case *lang.TableReadExpr:
		h, ok := c.resolveTable(ex.Table)
		if !ok {
			return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
				Message: fmt.Sprintf("undeclared table %q", ex.Table)}
		}
		return c.tables.readEntry(c.em, h, ex.Index)

	case *lang.HintExpr:
		// the witness queue carries no branch information: a Witness
		// instruction inside an untaken arm is skipped at run time and
		// every later hint would consume the wrong queue entry
		if len(c.branchBase) > 0 {
			return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
				Message: "witness hint inside a conditional arm; consume the hint before branching"}
		}
		return c.hints.consume(c.em, ex.Type), nil

	default:
		return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
			Message: fmt.Sprintf("unknown expression %T", e)}
	}
}

func (c *Compiler) compileBinary(ex *lang.BinaryExpr, where string) (lang.ValueID, error) {
	xID, err := c.compileExpr(ex.X, where)
	if err != nil {
		return lang.NoValue, err
	}
	yID, err := c.compileExpr(ex.Y, where)
	if err != nil {
		return lang.NoValue, err
	}
	xT := c.reg.get(xID).val.Type
	yT := c.reg.get(yID).val.Type

	var op script.Opcode
	var resT lang.Type
	switch ex.Op {
	case lang.Add, lang.Sub, lang.Mul:
		if xT.Kind != lang.KindField || yT.Kind != lang.KindField {
			return lang.NoValue, c.typeErr(where, ex.Op, xT, yT)
		}
		op = map[lang.BinaryOp]script.Opcode{
			lang.Add: script.Add, lang.Sub: script.Sub, lang.Mul: script.Mul,
		}[ex.Op]
		resT = lang.Field()
	case lang.Eq:
		if !xT.Equal(yT) || xT.Width() != 1 {
			return lang.NoValue, c.typeErr(where, ex.Op, xT, yT)
		}
		op = script.Eq
		resT = lang.Bool()
	case lang.And, lang.Or:
		if xT.Kind != lang.KindBool || yT.Kind != lang.KindBool {
			return lang.NoValue, c.typeErr(where, ex.Op, xT, yT)
		}
		if ex.Op == lang.And {
			op = script.BoolAnd
		} else {
			op = script.BoolOr
		}
		resT = lang.Bool()
	default:
		return lang.NoValue, &Error{Code: ErrInvalidProgram, Where: where,
			Message: fmt.Sprintf("unknown operator %v", ex.Op)}
	}

	c.b.Op(op)
	if err := c.em.consumeTop(2); err != nil {
		return lang.NoValue, err
	}
	res := c.reg.new(resT, lang.OriginExpr, "", -1)
	c.tr.Push(res.val.ID, resT.Width())
	return res.val.ID, nil
}

// compileCallExpr evaluates the arguments and compiles the call. Reference
// arguments resolve to the caller's existing values without emitting
// anything; the alignment step in compileCall decides copy versus move.
func (c *Compiler) compileCallExpr(ex *lang.CallExpr, where string) ([]lang.ValueID, error) {
	fn := c.prog.Func(ex.Func)
	if fn == nil {
		return nil, &Error{Code: ErrInvalidProgram, Where: where,
			Message: fmt.Sprintf("undeclared function %q", ex.Func)}
	}
	argIDs := make([]lang.ValueID, len(ex.Args))
	for i, arg := range ex.Args {
		if ref, ok := arg.(*lang.RefExpr); ok {
			id, found := c.resolve(ref.Name)
			if !found {
				return nil, &Error{Code: ErrInvalidProgram, Where: where,
					Message: fmt.Sprintf("undeclared local %q", ref.Name)}
			}
			argIDs[i] = id
			continue
		}
		id, err := c.compileExpr(arg, fmt.Sprintf("%s.arg[%d]", where, i))
		if err != nil {
			return nil, err
		}
		argIDs[i] = id
	}
	return c.compileCall(fn, argIDs, where)
}

// ========== conditionals ==========

// compileIf compiles both arms against snapshots of the entry state. The
// arms must leave identical stack shapes at the join: same pre-existing
// values at the same depths, and yield blocks of matching type and width,
// which unify into the declared bindings.
func (c *Compiler) compileIf(st *lang.IfStmt, where string) error {
	condID, err := c.compileExpr(st.Cond, where+".cond")
	if err != nil {
		return err
	}
	if c.reg.get(condID).val.Type.Kind != lang.KindBool {
		return &Error{Code: ErrInvalidProgram, Where: where,
			Message: fmt.Sprintf("condition is %s, want bool", c.reg.get(condID).val.Type)}
	}
	c.b.Op(script.If)
	if err := c.em.consumeTop(1); err != nil {
		return err
	}

	entryTr := c.tr.Snapshot()
	entryReg := c.reg.snapshot()
	c.branchBase = append(c.branchBase, entryReg.watermark)

	thenIDs, err := c.compileArm(&st.Then, st.Bind, where+".then")
	if err != nil {
		return err
	}
	thenTr := c.tr.Snapshot()
	thenReg := c.reg.snapshot()

	c.b.Op(script.Else)
	c.tr.Restore(entryTr)
	c.reg.restore(entryReg)

	elseIDs, err := c.compileArm(&st.Else, st.Bind, where+".else")
	if err != nil {
		return err
	}
	c.b.Op(script.EndIf)
	c.branchBase = c.branchBase[:len(c.branchBase)-1]

	if err := c.joinArms(st, thenTr, thenIDs, elseIDs, where); err != nil {
		return err
	}
	c.reg.joinReads(thenReg, entryReg)
	return nil
}

// compileArm compiles one conditional arm as its own frame: locals die at
// the arm's end, yields survive as the arm's top blocks
func (c *Compiler) compileArm(block *lang.Block, bind []lang.Binding, where string) ([]lang.ValueID, error) {
	floor := c.tr.Height()
	c.pushScope()
	if err := c.compileStmts(block.Stmts, where); err != nil {
		return nil, err
	}
	yieldIDs := make([]lang.ValueID, len(block.Yield))
	for k, yexpr := range block.Yield {
		id, err := c.compileExpr(yexpr, fmt.Sprintf("%s.yield[%d]", where, k))
		if err != nil {
			return nil, err
		}
		got := c.reg.get(id).val.Type
		if !got.Equal(bind[k].Type) {
			return nil, &Error{Code: ErrBranchShapeMismatch, Where: where,
				Message: fmt.Sprintf("yield %d is %s, binding %q declares %s",
					k, got, bind[k].Name, bind[k].Type),
				Snapshot: c.tr.String()}
		}
		yieldIDs[k] = id
	}
	fresh, err := c.collapseFrame(yieldIDs, floor)
	if err != nil {
		return nil, err
	}
	c.popScope()
	return fresh, nil
}

// joinArms verifies the two arm exits are the same shape and unifies the
// yield blocks into fresh bound values. The tracker currently holds the
// else-arm exit.
func (c *Compiler) joinArms(st *lang.IfStmt, thenTr *stack.Tracker,
	thenIDs, elseIDs []lang.ValueID, where string) error {

	layThen := thenTr.Layout()
	layElse := c.tr.Layout()
	if len(layThen) != len(layElse) || thenTr.Height() != c.tr.Height() {
		return &Error{Code: ErrBranchShapeMismatch, Where: where,
			Message: fmt.Sprintf("arm stacks differ: then %s, else %s", thenTr, c.tr),
			Snapshot: c.tr.String()}
	}

	yieldOf := func(ids []lang.ValueID, id lang.ValueID) int {
		for k, y := range ids {
			if y == id {
				return k
			}
		}
		return -1
	}
	for i := range layThen {
		a, b := layThen[i], layElse[i]
		if a.Width != b.Width {
			return &Error{Code: ErrBranchShapeMismatch, Where: where,
				Message:  fmt.Sprintf("block %d width differs: then %d, else %d", i, a.Width, b.Width),
				Snapshot: c.tr.String()}
		}
		if a.ID == b.ID {
			continue
		}
		ka, kb := yieldOf(thenIDs, a.ID), yieldOf(elseIDs, b.ID)
		if ka < 0 || ka != kb {
			return &Error{Code: ErrBranchShapeMismatch, Where: where,
				Message: fmt.Sprintf("arms disagree at depth of block %d: then %s, else %s",
					i, c.reg.get(a.ID).val, c.reg.get(b.ID).val),
				Snapshot: c.tr.String()}
		}
	}

	for k, bind := range st.Bind {
		tA := c.reg.get(thenIDs[k]).val.Type
		tB := c.reg.get(elseIDs[k]).val.Type
		if !tA.Equal(tB) || !tA.Equal(bind.Type) {
			return &Error{Code: ErrBranchShapeMismatch, Where: where,
				Message: fmt.Sprintf("binding %q: then yields %s, else yields %s, declared %s",
					bind.Name, tA, tB, bind.Type),
				Snapshot: c.tr.String()}
		}
		join := c.reg.new(bind.Type, lang.OriginExpr, "", -1)
		if err := c.tr.Rename(elseIDs[k], join.val.ID); err != nil {
			return &Error{Code: ErrStackUnderflow, Where: where,
				Message: "join rename failed", Snapshot: c.tr.String(), Cause: err}
		}
		c.reg.get(thenIDs[k]).state = stateRetired
		c.reg.get(elseIDs[k]).state = stateRetired
		c.bindName(bind.Name, join.val.ID)
	}
	return nil
}

// ========== program outputs ==========

// emitOutputs stages the declared outputs on the alt stack in reverse
// declaration order, clears everything else, and restores the outputs so
// the first declared ends up deepest. This mirrors the teardown of a call
// frame with the whole program as the frame.
func (c *Compiler) emitOutputs() ([]OutputSlot, error) {
	ids := make([]lang.ValueID, len(c.prog.Outputs))
	slots := make([]OutputSlot, len(c.prog.Outputs))
	for i, name := range c.prog.Outputs {
		id, ok := c.resolve(name)
		if !ok {
			return nil, &Error{Code: ErrInvalidProgram, Where: "outputs",
				Message: fmt.Sprintf("output %q is not a live top-level local", name)}
		}
		// the staging read is the one the liveness pass reserved
		c.reg.get(id).output = false
		matID, err := c.materializeAuto(id, "outputs")
		if err != nil {
			return nil, err
		}
		ids[i] = matID
		slots[i] = OutputSlot{Name: name, Type: c.reg.get(matID).val.Type}
	}
	fresh, err := c.collapseFrame(ids, 0)
	if err != nil {
		return nil, err
	}
	for i, name := range c.prog.Outputs {
		c.reg.get(fresh[i]).val.Name = name
	}
	return slots, nil
}

// ========== helpers ==========

// materializeAuto brings the value to the top, choosing move on the last
// remaining read and copy otherwise
func (c *Compiler) materializeAuto(id lang.ValueID, where string) (lang.ValueID, error) {
	matID, err := c.em.materialize(id, c.autoMode(id))
	if err != nil {
		if ce, ok := err.(*Error); ok && ce.Where == "" {
			ce.Where = where
		}
		return lang.NoValue, err
	}
	info := c.reg.get(id)
	if info.reads > 0 {
		info.reads--
	}
	return matID, nil
}

func (c *Compiler) autoMode(id lang.ValueID) Mode {
	info := c.reg.get(id)
	if info == nil || !c.cfg.AutoMove {
		return Copy
	}
	// values from outside the innermost open conditional stay put so
	// both arms leave the shared stack identical
	if n := len(c.branchBase); n > 0 && id < c.branchBase[n-1] {
		return Copy
	}
	if info.output || info.val.Origin == lang.OriginTable {
		return Copy
	}
	if info.reads <= 1 {
		return Move
	}
	return Copy
}

func (c *Compiler) bindName(name string, id lang.ValueID) {
	info := c.reg.get(id)
	info.val.Name = name
	if info.val.Origin == lang.OriginHint {
		c.hints.setName(info.val.HintSeq, name)
	}
	info.reads = c.curCounts()[name]
	if len(c.scopes) == 1 && c.outputSet[name] {
		info.output = true
	}
	c.curScope().names[name] = id
}

func (c *Compiler) checkDepth(where string) error {
	if c.tr.MaxHeight() > c.cfg.MaxStackDepth {
		return &Error{Code: ErrStackDepthExceeded, Where: where,
			Message: fmt.Sprintf("stack reaches %d slots, limit %d",
				c.tr.MaxHeight(), c.cfg.MaxStackDepth),
			Snapshot: c.tr.String()}
	}
	return nil
}

func (c *Compiler) pushScope() {
	c.scopes = append(c.scopes, &scope{
		names:  make(map[string]lang.ValueID),
		tables: make(map[string]*tableHandle),
	})
}

func (c *Compiler) pushFrameScope() {
	c.pushScope()
	c.scopes[len(c.scopes)-1].barrier = true
}

func (c *Compiler) popScope() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *Compiler) curScope() *scope {
	return c.scopes[len(c.scopes)-1]
}

func (c *Compiler) resolve(name string) (lang.ValueID, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if id, ok := c.scopes[i].names[name]; ok {
			return id, true
		}
		if c.scopes[i].barrier {
			break
		}
	}
	return lang.NoValue, false
}

func (c *Compiler) resolveTable(name string) (*tableHandle, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if h, ok := c.scopes[i].tables[name]; ok {
			return h, true
		}
		if c.scopes[i].barrier {
			break
		}
	}
	return nil, false
}

func (c *Compiler) pushCounts(counts lang.ReadCounts) {
	c.counts = append(c.counts, counts)
}

func (c *Compiler) popCounts() {
	c.counts = c.counts[:len(c.counts)-1]
}

func (c *Compiler) curCounts() lang.ReadCounts {
	return c.counts[len(c.counts)-1]
}

func (c *Compiler) typeErr(where string, op lang.BinaryOp, x, y lang.Type) error {
	return &Error{Code: ErrInvalidProgram, Where: where,
		Message: fmt.Sprintf("operator %v not defined on %s and %s", op, x, y)}
}
