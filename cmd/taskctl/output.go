package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/tasktracker/domain"
)

func (c *cli) printTask(cmd *cobra.Command, task domain.Task) error {
	if c.jsonOut {
		return writeJSON(cmd, task)
	}
	return c.printTasks(cmd, []domain.Task{task})
}

func (c *cli) printTasks(cmd *cobra.Command, tasks []domain.Task) error {
	if c.jsonOut {
		if tasks == nil {
			tasks = []domain.Task{}
		}
		return writeJSON(cmd, tasks)
	}
	if len(tasks) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tTITLE\tDESCRIPTION\tUPDATED")
	for _, t := range tasks {
		done := " "
		if t.Completed {
			done = "x"
		}
		description := ""
		if t.Description != nil {
			description = *t.Description
		}
		fmt.Fprintf(w, "%s\t[%s]\t%s\t%s\t%s\n", t.ID, done, t.Title, description, domain.FormatTimestamp(t.UpdatedAt))
	}
	return w.Flush()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
