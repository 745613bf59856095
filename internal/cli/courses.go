package cli

import (
	"github.com/spf13/cobra"

	"github.com/eduassist/portal/internal/domain/model"
)

// CourseList is the courses list result.
type CourseList []model.Course

func (CourseList) Headers() []string { return []string{"ID", "NAME", "STATUS", "INVITATION"} }

func (l CourseList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		status := string(c.Status)
		if status == "" {
			status = "-"
		}
		rows = append(rows, []string{c.CourseID, c.Name, status, c.InvitationCode})
	}
	return rows
}

func newCoursesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Work with courses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the courses visible to the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireToken(cmd.Context()); err != nil {
				return err
			}
			courses, err := a.rt.client.ListCourses(cmd.Context())
			if err != nil {
				return err
			}
			return Write(a.rt.out, a.rt.format, CourseList(courses))
		},
	})
	return cmd
}
