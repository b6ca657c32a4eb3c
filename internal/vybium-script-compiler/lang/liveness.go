package lang

// ReadCounts maps a local's name to the total number of reads of that local
// in a region: references in expressions, block yields, and program outputs.
// The codegen driver burns reads down as it materializes references; a
// reference that exhausts the count is the local's last use and may be
// compiled as a move instead of a copy.
type ReadCounts map[string]int

// CountReads walks a statement region and tallies reads per local name.
// Names declared in sibling conditional arms share one tally; that only
// overcounts, which degrades a move into a copy and never the reverse.
func CountReads(stmts []Stmt, yield []Expr, outputs []string) ReadCounts {
	counts := make(ReadCounts)
	countStmts(counts, stmts)
	for _, e := range yield {
		countExpr(counts, e)
	}
	for _, name := range outputs {
		counts[name]++
	}
	return counts
}

func countStmts(counts ReadCounts, stmts []Stmt) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *LetStmt:
			countExpr(counts, st.Expr)
		case *ExprStmt:
			countExpr(counts, st.Expr)
		case *TableStmt:
			// declaration only, no reads
		case *IfStmt:
			countExpr(counts, st.Cond)
			countStmts(counts, st.Then.Stmts)
			for _, e := range st.Then.Yield {
				countExpr(counts, e)
			}
			countStmts(counts, st.Else.Stmts)
			for _, e := range st.Else.Yield {
				countExpr(counts, e)
			}
		}
	}
}

func countExpr(counts ReadCounts, e Expr) {
	switch ex := e.(type) {
	case *ConstExpr, *TableReadExpr, *HintExpr:
		// no local reads
	case *RefExpr:
		counts[ex.Name]++
	case *BinaryExpr:
		countExpr(counts, ex.X)
		countExpr(counts, ex.Y)
	case *CallExpr:
		for _, a := range ex.Args {
			countExpr(counts, a)
		}
	}
}
