package main

import (
	"encoding/json"
	"io"

	"github.com/odvcencio/revdiff/pkg/object"
)

// resolveCommits resolves each revision expression in the project to a
// commit hash.
func (a *app) resolveCommits(exprs ...string) ([]object.Hash, error) {
	r, err := a.openProject()
	if err != nil {
		return nil, err
	}
	out := make([]object.Hash, 0, len(exprs))
	for _, expr := range exprs {
		h, _, err := r.ResolveCommit(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
