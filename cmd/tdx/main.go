// tdx is a command-line client for a TeamDynamix instance. It reads a YAML
// config describing the remote instance and a saved bearer token, and exposes
// the common asset, ticket, and people operations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/umich-tech-consulting/tdxapi/session"
	"github.com/umich-tech-consulting/tdxapi/tdx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tdx:", err)
		os.Exit(1)
	}
}

// flags shared by every subcommand.
type rootFlags struct {
	configPath string
	domain     string
	sandbox    bool
	production bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "tdx",
		Short:         "Client for a TeamDynamix instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "tdx.yaml", "Path to instance config")
	root.PersistentFlags().StringVar(&flags.domain, "domain", "", "Instance domain (overrides config)")
	root.PersistentFlags().BoolVar(&flags.sandbox, "sandbox", false, "Use the sandbox environment")
	root.PersistentFlags().BoolVar(&flags.production, "production", false, "Use the production environment")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newLoginCmd(flags),
		newWhoamiCmd(flags),
		newAssetCmd(flags),
		newTicketCmd(flags),
		newPersonCmd(flags),
	)
	return root
}

// loadConfig merges the config file with command-line overrides.
func loadConfig(flags *rootFlags) (*session.Config, error) {
	cfg, err := session.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.domain != "" {
		cfg.Domain = flags.domain
	}
	if flags.sandbox {
		cfg.Sandbox = true
	}
	if flags.production {
		cfg.Sandbox = false
	}
	return cfg, nil
}

func newLogger(flags *rootFlags) *slog.Logger {
	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newInstance builds an authenticated, initialized Instance.
func newInstance(ctx context.Context, flags *rootFlags) (*tdx.Instance, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	instance, err := tdx.New(cfg, newLogger(flags))
	if err != nil {
		return nil, err
	}
	if err := instance.LoadAuthToken(); err != nil {
		return nil, err
	}
	if err := instance.Initialize(ctx); err != nil {
		return nil, err
	}
	return instance, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newLoginCmd(flags *rootFlags) *cobra.Command {
	var tokenFile string
	cmd := &cobra.Command{
		Use:   "login <token>",
		Short: "Save a bearer token for later use",
		Long:  "Saves a bearer token obtained from the instance's auth endpoints to the token file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			path := tokenFile
			if path == "" {
				path = cfg.TokenFile
			}
			if path == "" {
				path = session.DefaultTokenFile
			}
			if err := session.SaveToken(path, args[0]); err != nil {
				return err
			}
			fmt.Println("token saved to", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Where to save the token")
	return cmd
}

func newWhoamiCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			instance, err := tdx.New(cfg, newLogger(flags))
			if err != nil {
				return err
			}
			if err := instance.LoadAuthToken(); err != nil {
				return err
			}
			user, err := instance.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(user)
		},
	}
}

func newAssetCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Asset operations",
	}

	var searchApp string
	search := &cobra.Command{
		Use:   "search <serial-or-name>",
		Short: "Search assets by serial or name substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			assets, err := instance.SearchAssets(cmd.Context(), args[0], searchApp)
			if err != nil {
				return err
			}
			return printJSON(assets)
		},
	}
	search.Flags().StringVar(&searchApp, "app", "", "Asset application name")

	var checkin struct {
		app      string
		location string
		status   string
		owner    string
		notes    string
	}
	checkinCmd := &cobra.Command{
		Use:   "checkin <asset-id>",
		Short: "Update an asset's inventory state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var assetID int
			if _, err := fmt.Sscanf(args[0], "%d", &assetID); err != nil {
				return fmt.Errorf("asset ID must be numeric: %w", err)
			}
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			asset, err := instance.GetAsset(cmd.Context(), assetID, checkin.app)
			if err != nil {
				return err
			}
			err = instance.CheckInAsset(cmd.Context(), asset, tdx.CheckInOptions{
				Location: checkin.location,
				Status:   checkin.status,
				OwnerUID: checkin.owner,
				Notes:    checkin.notes,
				AppName:  checkin.app,
			})
			if err != nil {
				return err
			}
			fmt.Println("asset checked in")
			return nil
		},
	}
	checkinCmd.Flags().StringVar(&checkin.app, "app", "", "Asset application name")
	checkinCmd.Flags().StringVar(&checkin.location, "location", "", "New location name")
	checkinCmd.Flags().StringVar(&checkin.status, "status", "", "New status name")
	checkinCmd.Flags().StringVar(&checkin.owner, "owner", "", "New owner UID (empty removes the owner)")
	checkinCmd.Flags().StringVar(&checkin.notes, "notes", "", "New Notes attribute value")
	checkinCmd.MarkFlagRequired("location")
	checkinCmd.MarkFlagRequired("status")

	cmd.AddCommand(search, checkinCmd)
	return cmd
}

func newTicketCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ticket",
		Short: "Ticket operations",
	}

	var search struct {
		app       string
		requester string
		statuses  []string
		title     string
		group     string
	}
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			tickets, err := instance.SearchTickets(cmd.Context(), tdx.TicketSearch{
				RequesterUID:     search.requester,
				StatusNames:      search.statuses,
				Title:            search.title,
				ResponsibleGroup: search.group,
				AppName:          search.app,
			})
			if err != nil {
				return err
			}
			return printJSON(tickets)
		},
	}
	searchCmd.Flags().StringVar(&search.app, "app", "", "Ticket application name")
	searchCmd.Flags().StringVar(&search.requester, "requester", "", "Requester UID")
	searchCmd.Flags().StringSliceVar(&search.statuses, "status", nil, "Status names the ticket may be in")
	searchCmd.Flags().StringVar(&search.title, "title", "", "Exact title to match locally")
	searchCmd.Flags().StringVar(&search.group, "group", "", "Responsible group name")

	var status struct {
		app      string
		comments string
	}
	statusCmd := &cobra.Command{
		Use:   "status <ticket-id> <status-name>",
		Short: "Move a ticket to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticketID int
			if _, err := fmt.Sscanf(args[0], "%d", &ticketID); err != nil {
				return fmt.Errorf("ticket ID must be numeric: %w", err)
			}
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := instance.UpdateTicketStatus(cmd.Context(), ticketID, args[1], status.comments, status.app); err != nil {
				return err
			}
			fmt.Println("ticket updated")
			return nil
		},
	}
	statusCmd.Flags().StringVar(&status.app, "app", "", "Ticket application name")
	statusCmd.Flags().StringVar(&status.comments, "comments", "", "Comments for the feed entry")

	var attachApp string
	attachCmd := &cobra.Command{
		Use:   "attach <ticket-id> <asset-id>",
		Short: "Attach an asset to a ticket",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ticketID, assetID int
			if _, err := fmt.Sscanf(args[0], "%d", &ticketID); err != nil {
				return fmt.Errorf("ticket ID must be numeric: %w", err)
			}
			if _, err := fmt.Sscanf(args[1], "%d", &assetID); err != nil {
				return fmt.Errorf("asset ID must be numeric: %w", err)
			}
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := instance.AttachAssetToTicket(cmd.Context(), ticketID, assetID, attachApp); err != nil {
				return err
			}
			fmt.Println("asset attached")
			return nil
		},
	}
	attachCmd.Flags().StringVar(&attachApp, "app", "", "Ticket application name")

	cmd.AddCommand(searchCmd, statusCmd, attachCmd)
	return cmd
}

func newPersonCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "person <alternate-id>",
		Short: "Look up a person by alternate ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			instance, err := newInstance(cmd.Context(), flags)
			if err != nil {
				return err
			}
			person, err := instance.GetPersonByAlternateID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(person)
		},
	}
}
