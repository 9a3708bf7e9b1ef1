package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aussiebroadwan/tenantconsole/internal/console/app"
	"github.com/aussiebroadwan/tenantconsole/internal/console/routes"
)

// flags override the environment when set.
type flags struct {
	apiURL    string
	store     string
	database  string
	redisAddr string
	routes    string
}

func (f *flags) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.apiURL, "api-url", "", "tenant API base URL (CONSOLE_API_URL)")
	pf.StringVar(&f.store, "store", "", "session store driver: sqlite, redis or memory (CONSOLE_STORE)")
	pf.StringVar(&f.database, "database", "", "sqlite database file (CONSOLE_DATABASE_FILE)")
	pf.StringVar(&f.redisAddr, "redis-addr", "", "redis address (CONSOLE_REDIS_ADDR)")
	pf.StringVar(&f.routes, "routes", "", "route table YAML file (CONSOLE_ROUTES_FILE)")
}

func (f *flags) config() app.Config {
	cfg := app.LoadConfig()
	if f.apiURL != "" {
		cfg.APIURL = f.apiURL
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if f.database != "" {
		cfg.DatabaseFile = f.database
	}
	if f.redisAddr != "" {
		cfg.RedisAddr = f.redisAddr
	}
	if f.routes != "" {
		cfg.RoutesFile = f.routes
	}
	return cfg
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "tenantconsole",
		Short: "Terminal console for tenant administration",
		Long: `Sign in to the tenant API and browse the administration console.

Every console started against the same session store shares one login:
signing out in one console signs out all of them, and a newer login
supersedes the session held by older consoles.`,
		Version:       app.BuildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), f.config())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run(cmd.Context())
		},
	}
	f.bind(root)

	root.AddCommand(newStatusCmd(f), newLogoutCmd(f), newRoutesCmd(f))
	return root
}

func newStatusCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), f.config())
			if err != nil {
				return err
			}
			defer application.Shutdown()

			st := application.Status(cmd.Context())
			out := cmd.OutOrStdout()
			if !st.LoggedIn {
				fmt.Fprintln(out, "Not signed in")
				if st.Reason != nil && !st.Valid {
					fmt.Fprintf(out, "Stored session is damaged: %v\n", st.Reason)
				}
				return nil
			}

			fmt.Fprintf(out, "Signed in as %s (%s)\n", st.Profile.FullName, st.Profile.EmailID)
			fmt.Fprintf(out, "  user id:  %s\n", st.Profile.UserID)
			fmt.Fprintf(out, "  role:     %s\n", st.Profile.UserType)
			if !st.LoginTime.IsZero() {
				fmt.Fprintf(out, "  since:    %s\n", st.LoginTime.Local().Format(time.RFC1123))
			}
			fmt.Fprintf(out, "  bound:    %t\n", st.Bound)
			if !st.Valid {
				fmt.Fprintf(out, "  problem:  %v\n", st.Reason)
			}
			return nil
		},
	}
}

func newLogoutCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out every console sharing the session store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.New(cmd.Context(), f.config())
			if err != nil {
				return err
			}
			defer application.Shutdown()

			if err := application.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newRoutesCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the route table and the capability each route requires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			policy, err := routes.Load(f.config().RoutesFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "login:   %s\nlanding: %s\ndefault: %s\n\n", policy.LoginPath(), policy.LandingPath(), policy.Default())
			for _, r := range policy.Routes() {
				label := r.Label
				if label == "" {
					label = "-"
				}
				fmt.Fprintf(out, "%-36s %-20s %s\n", r.Path, r.Capability, label)
			}
			return nil
		},
	}
}
