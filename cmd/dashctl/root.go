package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GTDGit/gtd_dashboard/pkg/dashboard"
)

// app carries settings shared by every subcommand.
type app struct {
	v   *viper.Viper
	out io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out}
	var configPath string

	cmd := &cobra.Command{
		Use:          "dashctl",
		Short:        "Command line client for the GTD dashboard API",
		Long:         `dashctl manages customers, chats and drafts of one business through the dashboard API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(configPath); err != nil {
				return err
			}
			if a.v.GetBool("debug") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to profile file (default: $HOME/.dashctl.yaml)")
	flags.String("url", "http://localhost:8080", "API base URL")
	flags.String("token", "", "Bearer token")
	flags.Int("business", 0, "Business ID")
	flags.Duration("timeout", 30*time.Second, "Request timeout")
	flags.Bool("debug", false, "Log API responses")
	for _, name := range []string{"url", "token", "business", "timeout", "debug"} {
		a.v.BindPFlag(name, flags.Lookup(name))
	}

	cmd.AddCommand(
		newCustomersCommand(a),
		newChatsCommand(a),
		newDraftsCommand(a),
	)
	return cmd
}

// loadConfig reads the profile file and DASHCTL_* variables. Flags win.
func (a *app) loadConfig(path string) error {
	a.v.SetEnvPrefix("DASHCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if path != "" {
		a.v.SetConfigFile(path)
	} else {
		a.v.SetConfigName(".dashctl")
		a.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.AddConfigPath(".")
	}

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config %s: %w", filepath.Base(a.v.ConfigFileUsed()), err)
		}
	}
	return nil
}

func (a *app) client() (*dashboard.Client, error) {
	token := a.v.GetString("token")
	if token == "" {
		return nil, errors.New("token is required (--token, DASHCTL_TOKEN or profile)")
	}
	businessID := a.v.GetInt("business")
	if businessID <= 0 {
		return nil, errors.New("business is required (--business, DASHCTL_BUSINESS or profile)")
	}
	return dashboard.NewClient(a.v.GetString("url"), token, businessID,
		dashboard.WithDebug(a.v.GetBool("debug"))), nil
}

func (a *app) timeout() time.Duration {
	if d := a.v.GetDuration("timeout"); d > 0 {
		return d
	}
	return 30 * time.Second
}
