package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/yanizio/campus/internal/account"
	"github.com/yanizio/campus/internal/linkimport"
	"github.com/yanizio/campus/internal/resolver"
	"github.com/yanizio/campus/internal/scope"
	"github.com/yanizio/campus/internal/scoping"
)

func newLinkCmd() *cobra.Command {
	var base string
	var sel scope.Selection
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Print a deep link carrying a school/subject context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := url.Parse(base)
			if err != nil {
				return fmt.Errorf("--base: %w", err)
			}
			if u.Scheme == "" || u.Host == "" {
				return errors.New("--base must be an absolute URL")
			}
			if sel.SchoolID == "" || sel.SchoolName == "" || sel.SubjectID == "" || sel.SubjectName == "" {
				return errors.New("all of --school-id, --school-name, --subject-id and --subject-name are required")
			}
			fmt.Fprintln(cmd.OutOrStdout(), linkimport.Link(u, sel).String())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&base, "base", "", "target URL, e.g. https://campus.example.com/exercises")
	f.StringVar(&sel.SchoolID, "school-id", "", "school id")
	f.StringVar(&sel.SchoolName, "school-name", "", "school display name")
	f.StringVar(&sel.SubjectID, "subject-id", "", "subject id")
	f.StringVar(&sel.SubjectName, "subject-name", "", "subject display name")
	_ = cmd.MarkFlagRequired("base")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the context decision for a user JSON record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data []byte
			var err error
			if path == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(path)
			}
			if err != nil {
				return err
			}
			var u account.User
			if err := json.Unmarshal(data, &u); err != nil {
				return fmt.Errorf("decode user: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resolver.Resolve(u))
		},
	}
	cmd.Flags().StringVar(&path, "user", "-", "user JSON file, or - for stdin")
	return cmd
}

func newHeadersCmd() *cobra.Command {
	var target, subject, role string
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the scoping headers attached to an upstream call",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := account.ParseRole(role)
			if role != "" && r == account.RoleUnknown {
				return fmt.Errorf("--role %q: want admin, teacher or student", role)
			}
			h, rule := scoping.Decide(target, scoping.Snapshot{SubjectID: subject, Role: r})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rule: %s\n", rule)
			keys := make([]string, 0, len(h))
			for k := range h {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, h[k])
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&target, "url", "", "upstream path or URL, e.g. /users?page=2")
	f.StringVar(&subject, "subject", "", "active subject id")
	f.StringVar(&role, "role", "", "admin, teacher or student")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
