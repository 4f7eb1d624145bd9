package ir

// BinOp enumerates binary expression operators (spec.md §3).
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	FloorDiv
	Mod
	BMax
	BMin
)

func (op BinOp) String() string {
	switch op {
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case FloorDiv:
		return "FloorDiv"
	case Mod:
		return "Mod"
	case BMax:
		return "Max"
	case BMin:
		return "Min"
	default:
		return "UnknownBinOp"
	}
}

// UnOp enumerates unary expression operators.
type UnOp uint8

const (
	Neg UnOp = iota
	Not
)

func (op UnOp) String() string {
	switch op {
	case Neg:
		return "Neg"
	case Not:
		return "Not"
	default:
		return "UnknownUnOp"
	}
}

// ExprKind tags the case of Expr's sum type.
type ExprKind uint8

const (
	ExprVar ExprKind = iota
	ExprIntLit
	ExprFloatLit
	ExprBinary
	ExprUnary
	ExprCallExpr
	ExprLoad
)

// Expr is loopoly's expression algebra: variable references, integer
// and float leaves, binary/unary operators, opaque calls, and tensor
// loads. It is a closed sum type — Kind selects which of the
// kind-specific fields below is populated — mirroring the teacher's
// Kind+payload shape (internal/hir.Expr) rather than an open
// interface hierarchy, per spec.md §9's "polymorphic expression
// algebra" design note.
type Expr struct {
	Kind ExprKind

	// ExprVar
	Name string

	// ExprIntLit
	Int int64

	// ExprFloatLit
	Float float64

	// ExprBinary
	BinOp       BinOp
	Left, Right *Expr

	// ExprUnary
	UnOp    UnOp
	Operand *Expr

	// ExprCallExpr
	Callee string
	Args   []*Expr

	// ExprLoad
	Tensor *Tensor
	Index  []*Expr
}

// Var constructs a variable-reference leaf.
func Var(name string) *Expr { return &Expr{Kind: ExprVar, Name: name} }

// IntLit constructs an integer-constant leaf.
func IntLit(v int64) *Expr { return &Expr{Kind: ExprIntLit, Int: v} }

// FloatLit constructs a float-constant leaf. Float leaves must never
// reach a polyhedral constraint (spec.md §4.1, §9).
func FloatLit(v float64) *Expr { return &Expr{Kind: ExprFloatLit, Float: v} }

// Bin constructs a binary operator node.
func Bin(op BinOp, lhs, rhs *Expr) *Expr {
	return &Expr{Kind: ExprBinary, BinOp: op, Left: lhs, Right: rhs}
}

// Un constructs a unary operator node.
func Un(op UnOp, x *Expr) *Expr {
	return &Expr{Kind: ExprUnary, UnOp: op, Operand: x}
}

// CallExpr constructs an opaque named function application.
func CallExpr(name string, args ...*Expr) *Expr {
	return &Expr{Kind: ExprCallExpr, Callee: name, Args: args}
}

// LoadExpr constructs a tensor access subterm.
func LoadExpr(tensor *Tensor, index ...*Expr) *Expr {
	return &Expr{Kind: ExprLoad, Tensor: tensor, Index: index}
}
