/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/movienight/games"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind              string
	port              int
	prefix            string
	profile           bool
	reshuffleTieBreak bool
	seed              uint64
	sessionTimeout    time.Duration
	tieBreakVoters    string
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	if _, err := games.ParseVoterScope(c.tieBreakVoters); err != nil {
		return err
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) gameOptions() games.Options {
	return games.Options{
		Seed:              c.seed,
		ReshuffleTieBreak: c.reshuffleTieBreak,
		TieBreakVoters:    games.VoterScope(c.tieBreakVoters),
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("MOVIENIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "movienight",
		Short:         "Pick a movie as a group: everyone suggests one, then everyone votes.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: MOVIENIGHT_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: MOVIENIGHT_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: MOVIENIGHT_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: MOVIENIGHT_PROFILE)")
	fs.BoolVar(&cfg.reshuffleTieBreak, "reshuffle-tiebreak", false, "reshuffle the voting order at the start of each tie-breaker round (env: MOVIENIGHT_RESHUFFLE_TIEBREAK)")
	fs.Uint64Var(&cfg.seed, "seed", 0, "seed for voting order shuffles, 0 for random (env: MOVIENIGHT_SEED)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle sessions are ended, 0 to keep forever (env: MOVIENIGHT_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tieBreakVoters, "tiebreak-voters", string(games.VotersTied), "who votes in tie-breaker rounds: tied or all (env: MOVIENIGHT_TIEBREAK_VOTERS)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: MOVIENIGHT_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: MOVIENIGHT_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: MOVIENIGHT_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: MOVIENIGHT_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("movienight v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
