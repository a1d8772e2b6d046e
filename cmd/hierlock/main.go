package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hierlock/hierlock"
	"github.com/hierlock/hierlock/config"
	"github.com/hierlock/hierlock/driver"
	hlogrus "github.com/hierlock/hierlock/log/logrus"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "hierlock [input]",
	Short: "Answer lock, unlock and upgrade requests on a tree",
	Long: `Reads an operation stream from the input file, or from
stdin if none is given, and prints true or false for
every operation in input order.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := config.New(configFile)
		if err != nil {
			return err
		}
		for key, flag := range map[string]string{
			"driver.workers": "workers",
			"driver.verify":  "verify",
			"log.level":      "log-level",
			"log.topics":     "log-topics",
			"log.format":     "log-format",
		} {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
				return errors.Wrapf(err, "bind flag %q", flag)
			}
		}
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}

		logger, err := hlogrus.New(cmd.ErrOrStderr(),
			cfg.Log.Level, cfg.Log.Format, cfg.Log.ParsedTopics())
		if err != nil {
			return errors.Wrap(err, "create logger")
		}

		var in io.Reader = cmd.InOrStdin()
		if len(args) > 0 {
			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "open input")
			}
			defer f.Close()
			in = f
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		summary, err := driver.Run(ctx, in, cmd.OutOrStdout(), cfg,
			hierlock.WithLog(logger))
		logger.Logger.WithField("summary", summary.String()).
			Infof("answered %d operations", summary.Total())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&configFile, "config", "c", "",
		"YAML configuration file",
	)
	rootCmd.Flags().IntP(
		"workers", "w", 1,
		"Number of operations applied at once",
	)
	rootCmd.Flags().Bool(
		"verify", false,
		"Check every lock counter after the last operation",
	)
	rootCmd.Flags().String(
		"log-level", "warn",
		"Log level (trace, debug, info, warn, error)",
	)
	rootCmd.Flags().String(
		"log-topics", "error",
		"Comma separated log topics (call, verdict, trace, error, all, none)",
	)
	rootCmd.Flags().String(
		"log-format", "text",
		"Log format (text or json)",
	)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("hierlock: " + err.Error() + "\n")
		os.Exit(1)
	}
}
