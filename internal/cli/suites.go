package cli

import (
	"github.com/spf13/cobra"

	"github.com/eduassist/portal/internal/domain/model"
)

// SuiteList is the suites list result.
type SuiteList []model.TestSuite

func (SuiteList) Headers() []string { return []string{"ID", "NAME", "TOOL", "CREATED"} }

func (l SuiteList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{s.ID, s.SuiteName, s.Tool, s.CreatedAt})
	}
	return rows
}

func newSuitesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "Work with TestPilot suites",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List test suites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(cmd.Context()); err != nil {
				return err
			}
			suites, err := a.rt.client.ListSuites(cmd.Context())
			if err != nil {
				return err
			}
			return Write(a.rt.out, a.rt.format, SuiteList(suites))
		},
	})
	return cmd
}
