// internal/cli/root.go
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved command-line configuration.
type Config struct {
	server      string
	instance    string
	channel     string
	code        string
	redirectURI string
	userID      string
	username    string
	verbose     bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server is required")
	}
	if c.code == "" && c.userID == "" {
		return errors.New("either --code (OAuth setup) or --user-id (dev session) must be provided")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KARMACOURT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "karmacourt",
		Short:         "Headless Karma Court client: join a courtroom and follow the proceedings from your terminal.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if cfg.instance == "" {
				cfg.instance = uuid.NewString()
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:3001", "court backend origin (env: KARMACOURT_SERVER)")
	fs.StringVar(&cfg.instance, "instance", "", "activity instance id; generated when empty (env: KARMACOURT_INSTANCE)")
	fs.StringVar(&cfg.channel, "channel", "", "voice channel id the courtroom is keyed on (env: KARMACOURT_CHANNEL)")
	fs.StringVar(&cfg.code, "code", "", "OAuth authorization code for the token exchange (env: KARMACOURT_CODE)")
	fs.StringVar(&cfg.redirectURI, "redirect-uri", "", "redirect URI the authorization code was issued for (env: KARMACOURT_REDIRECT_URI)")
	fs.StringVar(&cfg.userID, "user-id", "", "join as this user id without the token exchange, for local development (env: KARMACOURT_USER_ID)")
	fs.StringVar(&cfg.username, "username", "", "display name for --user-id sessions (env: KARMACOURT_USERNAME)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug output (env: KARMACOURT_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

// Execute runs the root command.
func Execute() {
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
