package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtg01100/systemctl-manager/internal/favorites"
)

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage pinned services",
	Long:    `Pin services to the top of the list and change their order.`,
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites in order",
	Args:  cobra.NoArgs,
	RunE: withFavorites(func(cmd *cobra.Command, store *favorites.Store, args []string) error {
		ordered := store.Ordered()
		if outputJSON {
			return printJSON(cmd.OutOrStdout(), ordered)
		}
		if len(ordered) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No favorites yet.")
			return nil
		}
		for i, name := range ordered {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name)
		}
		return nil
	}),
}

var favoritesToggleCmd = &cobra.Command{
	Use:   "toggle <name>",
	Short: "Add or remove a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: withFavorites(func(cmd *cobra.Command, store *favorites.Store, args []string) error {
		added, err := store.Toggle(args[0])
		if err != nil {
			return err
		}
		if added {
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", args[0])
		}
		return nil
	}),
}

var favoritesUpCmd = &cobra.Command{
	Use:   "up <name>",
	Short: "Move a favorite one place up",
	Args:  cobra.ExactArgs(1),
	RunE: withFavorites(func(cmd *cobra.Command, store *favorites.Store, args []string) error {
		return store.MoveUp(args[0])
	}),
}

var favoritesDownCmd = &cobra.Command{
	Use:   "down <name>",
	Short: "Move a favorite one place down",
	Args:  cobra.ExactArgs(1),
	RunE: withFavorites(func(cmd *cobra.Command, store *favorites.Store, args []string) error {
		return store.MoveDown(args[0])
	}),
}

func init() {
	rootCmd.AddCommand(favoritesCmd)
	favoritesCmd.AddCommand(favoritesListCmd, favoritesToggleCmd, favoritesUpCmd, favoritesDownCmd)
}

// withFavorites loads the favorites store before running fn.
func withFavorites(fn func(cmd *cobra.Command, store *favorites.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		store, err := e.favorites()
		if err != nil {
			return err
		}
		return fn(cmd, store, args)
	}
}
