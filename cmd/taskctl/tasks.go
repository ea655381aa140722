package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/tasktracker/domain"
	"github.com/fastygo/tasktracker/usecase"
)

func listCmd(c *cli) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := c.uc.Load(c.ctx); err != nil {
				return err
			}
			view := c.uc.SetQuery(query)
			return c.printTasks(cmd, view.FilteredTasks)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "only tasks whose title contains this text")
	return cmd
}

func showCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID [ID...]",
		Short: "Show one or more tasks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := make([]domain.Task, len(args))
			g, ctx := errgroup.WithContext(c.ctx)
			for i, id := range args {
				g.Go(func() error {
					task, err := c.uc.Get(ctx, id)
					if err != nil {
						return err
					}
					tasks[i] = *task
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return c.printTasks(cmd, tasks)
		},
	}
}

func addCmd(c *cli) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input := domain.CreateTaskInput{Title: title}
			if cmd.Flags().Changed("description") {
				input.Description = domain.StringPtr(description)
			}
			task, err := c.uc.Execute(c.ctx, usecase.CreateTask{Input: input})
			if err != nil {
				return err
			}
			return c.printTask(cmd, *task)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "task title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func updateCmd(c *cli) *cobra.Command {
	var (
		title            string
		description      string
		clearDescription bool
		completed        bool
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := domain.UpdateTaskInput{ID: args[0]}
			flags := cmd.Flags()
			if flags.Changed("title") {
				input.Title = domain.StringPtr(title)
			}
			if flags.Changed("description") {
				input.Description = domain.StringPtr(description)
				input.DescriptionSet = true
			}
			if clearDescription {
				input.Description = nil
				input.DescriptionSet = true
			}
			if flags.Changed("completed") {
				input.Completed = domain.BoolPtr(completed)
			}
			task, err := c.uc.Execute(c.ctx, usecase.UpdateTask{Input: input})
			if err != nil {
				return err
			}
			return c.printTask(cmd, *task)
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().BoolVar(&clearDescription, "clear-description", false, "remove the description")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion state")
	cmd.MarkFlagsMutuallyExclusive("description", "clear-description")
	return cmd
}

func toggleCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip the completion state of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := c.uc.ToggleComplete(c.ctx, args[0])
			if err != nil {
				return err
			}
			return c.printTask(cmd, *task)
		},
	}
}

func removeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.uc.Execute(c.ctx, usecase.DeleteTask{ID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func searchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find tasks whose title or description contains QUERY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := c.uc.Search(c.ctx, args[0])
			if err != nil {
				return err
			}
			return c.printTasks(cmd, tasks)
		},
	}
}
