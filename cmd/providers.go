package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cc-switch/proxy/internal/config"
	"github.com/cc-switch/proxy/internal/dialect"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Manage the provider catalog",
	Long:  `List, add, remove, and switch between configured upstream providers.`,
}

var providersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured providers",
	RunE:  runProvidersList,
}

var providersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a provider to the catalog",
	RunE:  runProvidersAdd,
}

var providersRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a provider from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runProvidersRemove,
}

var providersUseCmd = &cobra.Command{
	Use:   "use <dialect> <id>",
	Short: "Set the current provider for a dialect",
	Args:  cobra.ExactArgs(2),
	RunE:  runProvidersUse,
}

func init() {
	providersCmd.AddCommand(providersListCmd)
	providersCmd.AddCommand(providersAddCmd)
	providersCmd.AddCommand(providersRemoveCmd)
	providersCmd.AddCommand(providersUseCmd)

	providersAddCmd.Flags().String("id", "", "unique provider id")
	providersAddCmd.Flags().String("name", "", "display name")
	providersAddCmd.Flags().String("dialect", "", "dialect this provider speaks: claude, codex, or gemini")
	providersAddCmd.Flags().String("base-url", "", "upstream base URL")
	providersAddCmd.Flags().String("api-key", "", "upstream API key")
	providersAddCmd.Flags().Uint32("sort-index", 9999, "fallback order within the dialect (lower wins)")
	_ = providersAddCmd.MarkFlagRequired("id")
	_ = providersAddCmd.MarkFlagRequired("dialect")
	_ = providersAddCmd.MarkFlagRequired("base-url")
}

func runProvidersList(_ *cobra.Command, _ []string) error {
	if err := cfgMgr.Load(); err != nil {
		return err
	}

	snapshot := cfgMgr.Snapshot()
	if len(snapshot.Providers) == 0 {
		color.Yellow("No providers configured. Use 'cc-switch providers add' to add one.")
		return nil
	}

	for _, d := range []dialect.Dialect{dialect.Claude, dialect.Codex, dialect.Gemini} {
		group := snapshot.ProvidersByDialect(d)
		if len(group) == 0 {
			continue
		}

		current, _ := snapshot.CurrentProviderID(d)

		color.Blue("%s:", strings.ToUpper(string(d)))
		for _, p := range group {
			marker := "  "
			if p.ID == current {
				marker = "* "
			}
			fmt.Printf("%s%-20s %-30s sort=%d\n", marker, p.ID, p.Settings.ResolvedBaseURL(), p.SortIndexOrDefault())
		}
	}

	return nil
}

func runProvidersAdd(cmd *cobra.Command, _ []string) error {
	if err := cfgMgr.Load(); err != nil {
		return err
	}

	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	dialectFlag, _ := cmd.Flags().GetString("dialect")
	baseURL, _ := cmd.Flags().GetString("base-url")
	apiKey, _ := cmd.Flags().GetString("api-key")
	sortIndex, _ := cmd.Flags().GetUint32("sort-index")

	d, err := parseDialect(dialectFlag)
	if err != nil {
		return err
	}

	if name == "" {
		name = id
	}

	p := config.Provider{
		ID:        id,
		Name:      name,
		Dialect:   d,
		SortIndex: &sortIndex,
		Settings: config.ProviderSettings{
			BaseURL: baseURL,
			APIKey:  apiKey,
		},
	}

	if err := cfgMgr.AddProvider(p); err != nil {
		return fmt.Errorf("add provider: %w", err)
	}

	color.Green("Added provider %q for dialect %s", id, d)

	return nil
}

func runProvidersRemove(_ *cobra.Command, args []string) error {
	if err := cfgMgr.Load(); err != nil {
		return err
	}

	id := args[0]
	if err := cfgMgr.RemoveProvider(id); err != nil {
		return fmt.Errorf("remove provider: %w", err)
	}

	color.Green("Removed provider %q", id)

	return nil
}

func runProvidersUse(_ *cobra.Command, args []string) error {
	if err := cfgMgr.Load(); err != nil {
		return err
	}

	d, err := parseDialect(args[0])
	if err != nil {
		return err
	}
	id := args[1]

	snapshot := cfgMgr.Snapshot()
	if _, ok := snapshot.ProviderByID(id); !ok {
		return errors.New("no such provider: " + id)
	}

	if err := cfgMgr.SetCurrentProvider(d, id); err != nil {
		return fmt.Errorf("set current provider: %w", err)
	}

	color.Green("Switched %s to provider %q", d, id)

	return nil
}

func parseDialect(raw string) (dialect.Dialect, error) {
	switch strings.ToLower(raw) {
	case "claude":
		return dialect.Claude, nil
	case "codex":
		return dialect.Codex, nil
	case "gemini":
		return dialect.Gemini, nil
	default:
		return "", fmt.Errorf("unknown dialect %q: must be claude, codex, or gemini", raw)
	}
}
