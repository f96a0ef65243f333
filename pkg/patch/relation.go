package patch

import (
	"log/slog"
	"slices"

	"github.com/odvcencio/revdiff/pkg/object"
)

// RelationType classifies how two compared commits relate in history.
type RelationType string

const (
	RelationIdentical                    RelationType = "IDENTICAL"
	RelationSameParent                   RelationType = "SAME_PARENT"
	RelationLHSParentOfRHS               RelationType = "LHS_PARENT_OF_RHS"
	RelationRHSParentOfLHS               RelationType = "RHS_PARENT_OF_LHS"
	RelationRHSParentAncestorOfLHSParent RelationType = "RHS_PARENT_ANCESTOR_OF_LHS_PARENT"
	RelationLHSParentAncestorOfRHSParent RelationType = "LHS_PARENT_ANCESTOR_OF_RHS_PARENT"
	RelationCommonBase                   RelationType = "COMMON_BASE"
	RelationMergeCommit                  RelationType = "MERGE_COMMIT"
	RelationOther                        RelationType = "OTHER"
)

// CommitReader reads commit objects.
type CommitReader interface {
	ReadCommit(h object.Hash) (*object.CommitObj, error)
}

// Ancestry is the history capability the relation analysis needs.
// *repo.Repo implements it.
type Ancestry interface {
	CommitReader
	IsAncestor(ancestor, descendant object.Hash) (bool, error)
	FindMergeBase(a, b object.Hash) (object.Hash, error)
}

// RelationAnalyzer classifies pairs of commits. The result is a hint for
// choosing a diff strategy; nothing depends on it for correctness except
// MERGE_COMMIT detection.
type RelationAnalyzer struct {
	history Ancestry
	logger  *slog.Logger
}

// NewRelationAnalyzer returns an analyzer over history. A nil logger
// discards output.
func NewRelationAnalyzer(history Ancestry, logger *slog.Logger) *RelationAnalyzer {
	return &RelationAnalyzer{history: history, logger: orDiscard(logger)}
}

// Classify returns the relation of oldCommit (left-hand side) to newCommit
// (right-hand side). It never fails: anything it cannot read classifies
// as OTHER.
func (a *RelationAnalyzer) Classify(oldCommit, newCommit object.Hash) RelationType {
	if oldCommit == newCommit {
		return RelationIdentical
	}

	oldC, err := a.history.ReadCommit(oldCommit)
	if err != nil {
		a.logger.Debug("relation: read commit failed", "commit", oldCommit, "error", err)
		return RelationOther
	}
	newC, err := a.history.ReadCommit(newCommit)
	if err != nil {
		a.logger.Debug("relation: read commit failed", "commit", newCommit, "error", err)
		return RelationOther
	}

	oldIsParent := slices.Contains(newC.Parents, oldCommit)
	newIsParent := slices.Contains(oldC.Parents, newCommit)

	switch {
	case (len(newC.Parents) > 1 && oldIsParent) || (len(oldC.Parents) > 1 && newIsParent):
		return RelationMergeCommit
	case oldIsParent:
		return RelationLHSParentOfRHS
	case newIsParent:
		return RelationRHSParentOfLHS
	}

	if len(oldC.Parents) == 1 && len(newC.Parents) == 1 {
		oldParent, newParent := oldC.Parents[0], newC.Parents[0]
		if oldParent == newParent {
			return RelationSameParent
		}
		if a.isAncestor(newParent, oldParent) {
			return RelationRHSParentAncestorOfLHSParent
		}
		if a.isAncestor(oldParent, newParent) {
			return RelationLHSParentAncestorOfRHSParent
		}
	}

	base, err := a.history.FindMergeBase(oldCommit, newCommit)
	if err != nil {
		a.logger.Debug("relation: merge base failed", "old", oldCommit, "new", newCommit, "error", err)
		return RelationOther
	}
	if base != "" {
		return RelationCommonBase
	}
	return RelationOther
}

func (a *RelationAnalyzer) isAncestor(ancestor, descendant object.Hash) bool {
	ok, err := a.history.IsAncestor(ancestor, descendant)
	if err != nil {
		a.logger.Debug("relation: ancestry check failed", "ancestor", ancestor, "descendant", descendant, "error", err)
		return false
	}
	return ok
}
