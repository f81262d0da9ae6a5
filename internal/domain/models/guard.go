package models

// OperationGuard flags reject overlapping same-kind user mutations.
type OperationGuard struct {
	Creating  bool `json:"creating"`
	Updating  bool `json:"updating"`
	Deleting  bool `json:"deleting"`
	Switching bool `json:"switching"`
}

type OperationKind string

const (
	OpCreating  OperationKind = "creating"
	OpUpdating  OperationKind = "updating"
	OpDeleting  OperationKind = "deleting"
	OpSwitching OperationKind = "switching"
)

func (g *OperationGuard) flag(kind OperationKind) *bool {
	switch kind {
	case OpCreating:
		return &g.Creating
	case OpUpdating:
		return &g.Updating
	case OpDeleting:
		return &g.Deleting
	case OpSwitching:
		return &g.Switching
	}
	return nil
}

// Acquire sets the flag for kind and reports whether it was free.
func (g *OperationGuard) Acquire(kind OperationKind) bool {
	f := g.flag(kind)
	if f == nil || *f {
		return false
	}
	*f = true
	return true
}

func (g *OperationGuard) Release(kind OperationKind) {
	if f := g.flag(kind); f != nil {
		*f = false
	}
}

func (g OperationGuard) Busy(kind OperationKind) bool {
	if f := g.flag(kind); f != nil {
		return *f
	}
	return false
}
