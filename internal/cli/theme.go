package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/kv"
	"github.com/murexstreams/murex/internal/library"
	"github.com/murexstreams/murex/internal/theme"
)

var themeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Pick the dashboard color theme",
	Long: `Pick the color theme used by the dashboard.

Available themes: frappe, latte, macchiato, mocha.

Without arguments, opens a picker on a terminal and lists the themes
otherwise. The choice is stored in the library database.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTheme,
}

func init() {
	rootCmd.AddCommand(themeCmd)
}

func runTheme(cmd *cobra.Command, args []string) error {
	manager, closer, err := openThemeManager()
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	if len(args) == 1 {
		p, err := manager.Set(args[0])
		if err != nil {
			return err
		}
		if JSONOutput() {
			return json.NewEncoder(os.Stdout).Encode(map[string]string{"active": p.Name})
		}
		fmt.Printf("Theme: %s\n", p.Name)
		return nil
	}

	active := manager.Active()

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"active":    active.Name,
			"available": theme.Names(),
		})
	}

	if !isTerminal() {
		for _, name := range theme.Names() {
			fmt.Printf("%s %s\n", StatusIcon(name == active.Name), name)
		}
		return nil
	}

	choice := active.Name
	options := make([]huh.Option[string], 0, len(theme.Names()))
	for _, name := range theme.Names() {
		label := name
		if name == active.Name {
			label += " (active)"
		}
		options = append(options, huh.NewOption(label, name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which theme?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("selection cancelled: %w", err)
	}

	if choice != active.Name {
		if _, err := manager.Set(choice); err != nil {
			return err
		}
	}
	fmt.Printf("Theme: %s\n", choice)
	return nil
}

// openThemeManager backs the theme manager with the library database
// so the dashboard sees the same selection. The returned closer owns
// the database handle.
func openThemeManager() (*theme.Manager, io.Closer, error) {
	dbURL, err := resolveDBURL()
	if err != nil {
		return nil, nil, err
	}
	db, err := library.Open(dbURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := kv.NewSQL(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return theme.NewManager(store, cfg.TUI.Theme), db, nil
}
