package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	metrics "github.com/docker/go-metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/TheSmallBoat/wlw/supervisor"
	"github.com/TheSmallBoat/wlw/wm"
)

type serverOptions struct {
	pipeName    string
	rulesFile   string
	growBy      int
	hooks       []string
	metricsAddr string
	logLevel    string
	logFormat   string
}

func newServerCommand() *cobra.Command {
	var opts serverOptions

	cmd := &cobra.Command{
		Use:           "wlw-server [OPTIONS]",
		Short:         "Serve window hook helpers and lay out their windows.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyEnv(cmd.Flags()); err != nil {
				return err
			}
			return runServer(opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.pipeName, "pipe", wm.DefaultPipeName(), "Name of the pipe hook helpers connect to")
	flags.StringVar(&opts.rulesFile, "rules", defaultRulesFile(), "Layout rules file")
	flags.IntVar(&opts.growBy, "grow-by", 16, "Connection slots added whenever all are taken")
	flags.StringSliceVar(&opts.hooks, "hook", nil, "Hook helper to start and keep running (repeatable)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "info", `Set the logging level ("debug"|"info"|"warn"|"error"|"fatal")`)
	flags.StringVar(&opts.logFormat, "log-format", "text", `Set the log format ("text"|"json")`)

	return cmd
}

// applyEnv fills every flag not given on the command line from WLW_<FLAG>.
func applyEnv(flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Changed || err != nil {
			return
		}
		name := "WLW_" + strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
		if v, ok := os.LookupEnv(name); ok {
			if setErr := flags.Set(f.Name, v); setErr != nil {
				err = fmt.Errorf("%s: %w", name, setErr)
			}
		}
	})
	return err
}

func defaultRulesFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "wlw.toml")
}

func setupLogging(opts serverOptions) error {
	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	switch opts.logFormat {
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return fmt.Errorf("unknown log format %q", opts.logFormat)
	}
	return nil
}

func loadRules(path string, log logrus.FieldLogger) (wm.Rules, error) {
	if path == "" {
		return wm.Rules{}, nil
	}
	rules, err := wm.LoadRules(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("rules", path).Info("no rules file, windows are left alone")
		return wm.Rules{}, nil
	}
	return rules, err
}

func runServer(opts serverOptions) error {
	if err := setupLogging(opts); err != nil {
		return err
	}
	log := logrus.WithField("pipe", opts.pipeName)

	rules, err := loadRules(opts.rulesFile, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wmCtx, err := wm.New(wm.Config{
		PipeName: opts.pipeName,
		GrowBy:   opts.growBy,
		Logger:   logrus.WithField("component", "wm"),
	}, wm.NewLayoutScript(rules, logrus.WithField("component", "layout")))
	if err != nil {
		return err
	}
	defer wmCtx.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return wmCtx.Run(ctx) })

	if len(opts.hooks) > 0 {
		helpers := make([]supervisor.Helper, 0, len(opts.hooks))
		for _, path := range opts.hooks {
			helpers = append(helpers, supervisor.Helper{Name: filepath.Base(path), Path: path})
		}
		sup, err := supervisor.New(supervisor.Config{
			Helpers:  helpers,
			PipeName: wmCtx.PipeName(),
			Stdout:   os.Stderr,
			Stderr:   os.Stderr,
			Logger:   logrus.WithField("component", "supervisor"),
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return sup.Run(ctx) })
	}

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.WithField("addr", opts.metricsAddr).Info("serving metrics")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	log.WithField("stats", fmt.Sprintf("%+v", wmCtx.Stats())).Info("shutting down")
	return err
}

func main() {
	logrus.SetOutput(os.Stderr)

	cmd := newServerCommand()
	cmd.SetOut(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
