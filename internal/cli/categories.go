package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/sadopc/tomato/internal/pomo"
	"github.com/sadopc/tomato/internal/tracker"
)

func newCategoriesCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"cats"},
		Short:   "List and manage categories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()
			printCategories(cmd.OutOrStdout(), e.tracker)
			return nil
		},
	}

	cmd.AddCommand(newCategoryAddCmd(flags))
	cmd.AddCommand(newCategoryRmCmd(flags))
	cmd.AddCommand(newCategoryDefaultCmd(flags))
	cmd.AddCommand(newCategoryRenameCmd(flags))
	return cmd
}

func newCategoryAddCmd(flags *rootFlags) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			if color == "" {
				color = pomo.Palette[e.tracker.Categories.Len()%len(pomo.Palette)]
			}
			c, err := e.tracker.Categories.Add(args[0], color)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q (%s)\n", c.Name, c.Color)
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "Hex colour, e.g. #10b981")
	return cmd
}

func newCategoryRmCmd(flags *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm NAME|ID",
		Aliases: []string{"delete"},
		Short:   "Delete a category, moving its sessions to the default",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := lookupCategory(e.tracker, args[0])
			if err != nil {
				return err
			}

			var prompt tracker.Confirm
			var promptErr error
			if !yes {
				prompt = func(msg string) bool {
					ok, err := confirm("Delete category?", msg)
					promptErr = err
					return ok
				}
			}
			deleted, err := e.tracker.Categories.Delete(c.ID, prompt)
			if err != nil {
				return err
			}
			if promptErr != nil {
				return promptErr
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q. Default is now %q.\n",
				c.Name, e.tracker.Categories.Default().Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")
	return cmd
}

func newCategoryDefaultCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "default NAME|ID",
		Short: "Make a category the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := lookupCategory(e.tracker, args[0])
			if err != nil {
				return err
			}
			if err := e.tracker.Categories.SetDefault(c.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q is now the default.\n", c.Name)
			return nil
		},
	}
}

func newCategoryRenameCmd(flags *rootFlags) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "rename NAME|ID NEW_NAME",
		Short: "Rename a category or change its colour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			c, err := lookupCategory(e.tracker, args[0])
			if err != nil {
				return err
			}
			if color == "" {
				color = c.Color
			}
			if err := e.tracker.Categories.Update(c.ID, args[1], color); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %q to %q.\n", c.Name, args[1])
			return nil
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "New hex colour")
	return cmd
}

func lookupCategory(t *tracker.Tracker, ref string) (pomo.Category, error) {
	c, ok := t.Categories.Lookup(ref)
	if !ok {
		return c, fmt.Errorf("category %q: %w", ref, pomo.ErrNotFound)
	}
	return c, nil
}

func printCategories(w io.Writer, t *tracker.Tracker) {
	for _, c := range t.Categories.List() {
		mark := " "
		if c.IsDefault {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-20s %s  %d session(s)\n",
			mark, c.Name, c.Color, t.Sessions.CountByCategory(c.ID))
	}
}

// confirm asks a yes/no question on the terminal. Ctrl+C counts as no.
func confirm(title, description string) (bool, error) {
	ok := false
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
