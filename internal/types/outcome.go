package types

type OutcomeKind string

const (
	OutcomeResolved  OutcomeKind = "resolved"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomePruned    OutcomeKind = "pruned"
	OutcomeDuplicate OutcomeKind = "duplicate"
)

// ResolutionOutcome records what happened to one visited reference.
type ResolutionOutcome struct {
	Kind   OutcomeKind
	Module ModuleDescriptor
	Reason string
}

func Resolved(module ModuleDescriptor) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeResolved, Module: module}
}

func Failed(reason string) ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeFailed, Reason: reason}
}

func Pruned() ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomePruned}
}

// Duplicate marks a reference whose identity was already claimed earlier
// in the walk.
func Duplicate() ResolutionOutcome {
	return ResolutionOutcome{Kind: OutcomeDuplicate}
}

// NodeOutcome ties an outcome to the reference and depth it was produced at.
type NodeOutcome struct {
	Reference ReferenceDescriptor
	Depth     int
	Outcome   ResolutionOutcome
}

type NodeStatus string

const (
	NodeStatusNormal    NodeStatus = "normal"
	NodeStatusDuplicate NodeStatus = "duplicate"
	NodeStatusFailed    NodeStatus = "failed"
)

// Glyph is the single character that prefixes a rendered node.
func (s NodeStatus) Glyph() string {
	switch s {
	case NodeStatusDuplicate:
		return "-"
	case NodeStatusFailed:
		return "!"
	default:
		return "+"
	}
}

// TreeLine is one rendered node of the dependency tree.
type TreeLine struct {
	Depth     int
	Status    NodeStatus
	Escalated bool
	Label     string
	Reason    string
	Text      string
}

type WalkSummary struct {
	Nodes       int
	Resolved    int
	Duplicates  int
	Failed      int
	Escalations int
	Pruned      int
}
