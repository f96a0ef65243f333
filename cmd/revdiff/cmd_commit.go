package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/odvcencio/revdiff/pkg/object"
	"github.com/odvcencio/revdiff/pkg/repo"
)

func newCommitCmd(a *app) *cobra.Command {
	var (
		message   string
		parents   []string
		author    string
		committer string
		date      string
		ref       string
	)

	cmd := &cobra.Command{
		Use:   "commit <dir>",
		Short: "Snapshot a directory as a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openProject()
			if err != nil {
				return err
			}

			when := time.Now()
			if date != "" {
				when, err = time.Parse(time.RFC3339, date)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
			}
			authorID, err := parseIdentity(author, when)
			if err != nil {
				return fmt.Errorf("--author: %w", err)
			}
			committerID := authorID
			if committer != "" {
				if committerID, err = parseIdentity(committer, when); err != nil {
					return fmt.Errorf("--committer: %w", err)
				}
			}

			var parentHashes []object.Hash
			for _, p := range parents {
				h, _, err := r.ResolveCommit(p)
				if err != nil {
					return err
				}
				parentHashes = append(parentHashes, h)
			}

			tree, err := r.SnapshotDir(args[0])
			if err != nil {
				return err
			}
			if !strings.HasSuffix(message, "\n") {
				message += "\n"
			}
			h, err := r.CommitTree(repo.CommitOptions{
				Tree:      tree,
				Parents:   parentHashes,
				Author:    authorID,
				Committer: committerID,
				Message:   message,
			})
			if err != nil {
				return err
			}
			if ref != "" {
				if err := r.UpdateRef(ref, h); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringArrayVar(&parents, "parent", nil, "parent revision (repeatable)")
	cmd.Flags().StringVar(&author, "author", "revdiff <revdiff@localhost>", `author as "Name <email>"`)
	cmd.Flags().StringVar(&committer, "committer", "", "committer, defaults to the author")
	cmd.Flags().StringVar(&date, "date", "", "RFC 3339 timestamp for author and committer")
	cmd.Flags().StringVar(&ref, "ref", "", "ref to point at the new commit, e.g. refs/heads/main")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// parseIdentity parses "Name <email>".
func parseIdentity(s string, when time.Time) (object.Identity, error) {
	lt := strings.IndexByte(s, '<')
	gt := strings.LastIndexByte(s, '>')
	if lt < 0 || gt < lt || strings.TrimSpace(s[gt+1:]) != "" {
		return object.Identity{}, fmt.Errorf("expected \"Name <email>\", got %q", s)
	}
	name := strings.TrimSpace(s[:lt])
	if name == "" {
		return object.Identity{}, fmt.Errorf("missing name in %q", s)
	}
	return object.NewIdentity(name, s[lt+1:gt], when), nil
}
