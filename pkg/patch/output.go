package patch

import (
	"slices"

	"github.com/odvcencio/revdiff/pkg/linediff"
	"github.com/odvcencio/revdiff/pkg/object"
)

// ChangeType says how a file changed between the two sides.
type ChangeType string

const (
	ChangeAdded    ChangeType = "ADDED"
	ChangeDeleted  ChangeType = "DELETED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeRenamed  ChangeType = "RENAMED"
	ChangeCopied   ChangeType = "COPIED"
	ChangeRewrite  ChangeType = "REWRITE"
)

// PatchType says whether edits were computed.
type PatchType string

const (
	PatchUnified PatchType = "UNIFIED"
	PatchBinary  PatchType = "BINARY"
)

// FileDiffOutput is the diff of one file between two commits. BINARY
// outputs carry no edits, and neither do listed files too large to diff
// (EditsSkipped).
//
// Outputs handed out by DiffOperations are copies; changing one does not
// affect the cache.
type FileDiffOutput struct {
	OldCommitID    object.Hash     `json:"old_commit_id"`
	NewCommitID    object.Hash     `json:"new_commit_id"`
	ComparisonType ComparisonType  `json:"comparison_type"`
	ChangeType     ChangeType      `json:"change_type"`
	PatchType      PatchType       `json:"patch_type"`
	OldPath        *string         `json:"old_path,omitempty"`
	NewPath        *string         `json:"new_path,omitempty"`
	OldMode        *string         `json:"old_mode,omitempty"`
	NewMode        *string         `json:"new_mode,omitempty"`
	HeaderLines    []string        `json:"header_lines,omitempty"`
	Edits          []linediff.Edit `json:"edits,omitempty"`
	EditsSkipped   bool            `json:"edits_skipped,omitempty"`
	Size           int64           `json:"size"`
	SizeDelta      int64           `json:"size_delta"`
}

// Path returns the new path, or the old path for deletions.
func (o FileDiffOutput) Path() string {
	if o.NewPath != nil {
		return *o.NewPath
	}
	if o.OldPath != nil {
		return *o.OldPath
	}
	return ""
}

// Empty reports whether the output describes no change at all, as returned
// for a path that is identical on both sides.
func (o FileDiffOutput) Empty() bool {
	return len(o.HeaderLines) == 0 && len(o.Edits) == 0
}

// Clone returns a copy of o that shares no memory with it.
func (o FileDiffOutput) Clone() FileDiffOutput {
	o.OldPath = clonePtr(o.OldPath)
	o.NewPath = clonePtr(o.NewPath)
	o.OldMode = clonePtr(o.OldMode)
	o.NewMode = clonePtr(o.NewMode)
	o.HeaderLines = slices.Clone(o.HeaderLines)
	o.Edits = slices.Clone(o.Edits)
	return o
}

func cloneOutputs(outs []FileDiffOutput) []FileDiffOutput {
	if outs == nil {
		return nil
	}
	cp := make([]FileDiffOutput, len(outs))
	for i, out := range outs {
		cp[i] = out.Clone()
	}
	return cp
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	return strPtr(*s)
}

func strPtr(s string) *string { return &s }
