package plan

// Kind identifies an operator.
type Kind int

const (
	KindScan Kind = iota
	KindFilter
	KindProject
	KindJoin
	KindSort
	KindLimit
	KindValues
	KindConverter
)

var kindNames = [...]string{"Scan", "Filter", "Project", "Join", "Sort", "Limit", "Values", "Converter"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Convention tags the physical world a node belongs to.
type Convention int

const (
	// None marks logical operators. They are never executed.
	None Convention = iota
	// Generic is the row-at-a-time executable convention.
	Generic
	// Index marks operators evaluated natively by the index store.
	Index
)

func (c Convention) String() string {
	switch c {
	case None:
		return "NONE"
	case Generic:
		return "GENERIC"
	case Index:
		return "INDEX"
	}
	return "UNKNOWN"
}

// RequiredInput returns the convention op's inputs must be in when op
// runs in convention c.
func RequiredInput(op Operator, c Convention) Convention {
	if conv, ok := op.(*Converter); ok {
		return conv.From
	}
	return c
}
