package codegen

import (
	"fmt"

	"github.com/vybium/vybium-script-compiler/internal/vybium-script-compiler/lang"
)

// compileCall compiles one call site. Bodies are compiled per call site:
// depths inside the body are specific to this caller's stack, so no code
// is shared between call sites.
func (c *Compiler) compileCall(fn *lang.FuncDecl, argIDs []lang.ValueID, where string) ([]lang.ValueID, error) {
	if len(argIDs) != len(fn.Params) {
		return nil, &Error{Code: ErrCallSignatureMismatch, Where: where,
			Message: fmt.Sprintf("call to %q with %d arguments, signature has %d",
				fn.Name, len(argIDs), len(fn.Params))}
	}
	for i, param := range fn.Params {
		info := c.reg.get(argIDs[i])
		if info == nil {
			return nil, &Error{Code: ErrUseAfterDrop, Where: where,
				Message: fmt.Sprintf("argument %d of %q was never materialized", i, fn.Name)}
		}
		if !info.val.Type.Equal(param.Type) {
			return nil, &Error{Code: ErrCallSignatureMismatch, Where: where,
				Message: fmt.Sprintf("argument %d of %q is %s, parameter %q is %s",
					i, fn.Name, info.val.Type, param.Name, param.Type)}
		}
	}

	// Align arguments into the callee's entry frame: parameters occupy
	// the topmost slots in declared order, first parameter deepest.
	// Argument order at the call site does not matter; each argument is
	// brought up by its own move or copy.
	paramIDs := make([]lang.ValueID, len(argIDs))
	frameWidth := 0
	for i, param := range fn.Params {
		matID, err := c.materializeAuto(argIDs[i], where)
		if err != nil {
			return nil, err
		}
		paramIDs[i] = matID
		frameWidth += param.Type.Width()
	}

	// The frame floor is measured after alignment: a moved argument may
	// have come from below the caller's pre-call height, shrinking the
	// caller-owned region. The params are exactly the top blocks now.
	floor := c.tr.Height() - frameWidth

	bodyCounts := lang.CountReads(fn.Body.Stmts, fn.Body.Yield, nil)
	c.pushFrameScope()
	c.pushCounts(bodyCounts)
	for i, param := range fn.Params {
		info := c.reg.get(paramIDs[i])
		info.val.Name = param.Name
		info.reads = bodyCounts[param.Name]
		c.curScope().names[param.Name] = paramIDs[i]
	}

	if err := c.compileStmts(fn.Body.Stmts, where+".body"); err != nil {
		return nil, err
	}

	// The declared results must end up as the topmost live values in
	// declared order, first result deepest
	retIDs := make([]lang.ValueID, len(fn.Body.Yield))
	for k, yexpr := range fn.Body.Yield {
		id, err := c.compileExpr(yexpr, fmt.Sprintf("%s.result[%d]", where, k))
		if err != nil {
			return nil, err
		}
		got := c.reg.get(id).val.Type
		if k >= len(fn.Results) || !got.Equal(fn.Results[k]) {
			return nil, &Error{Code: ErrReturnShapeMismatch, Where: where,
				Message: fmt.Sprintf("%q result %d is %s, declared %s",
					fn.Name, k, got, fn.Results[k]),
				Snapshot: c.tr.String()}
		}
		retIDs[k] = id
	}

	fresh, err := c.collapseFrame(retIDs, floor)
	if err != nil {
		return nil, err
	}
	c.popCounts()
	c.popScope()
	return fresh, nil
}

// collapseFrame tears down everything above floor while preserving the
// given top blocks: they are staged on the alt stack (shallowest first),
// the remaining frame is cleared with paired drops, and the staged blocks
// return under fresh identities, first one deepest. This is the shared
// epilogue for function returns, conditional-arm yields, and program
// outputs.
func (c *Compiler) collapseFrame(keepIDs []lang.ValueID, floor int) ([]lang.ValueID, error) {
	for k := len(keepIDs) - 1; k >= 0; k-- {
		if err := c.em.stageToAlt(keepIDs[k]); err != nil {
			return nil, err
		}
	}
	if err := c.em.clearAbove(floor); err != nil {
		return nil, err
	}
	fresh := make([]lang.ValueID, len(keepIDs))
	for k, oldID := range keepIDs {
		old := c.reg.get(oldID)
		info := c.reg.new(old.val.Type, lang.OriginExpr, old.val.Name, -1)
		c.em.unstageFromAlt(info.val.ID)
		// same stack content, fresh identity from the caller's side
		old.state = stateRetired
		fresh[k] = info.val.ID
	}
	return fresh, nil
}
