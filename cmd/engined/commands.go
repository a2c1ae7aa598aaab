package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"engined/internal/config"
	"engined/internal/httpapi"
	"engined/internal/loader"
	"engined/internal/version"
	"engined/pkg/types"
)

// rootOptions are the persistent flags.
type rootOptions struct {
	configPath string
	root       string
	platform   string
	logLevel   string
	logFormat  string
	jsonOutput bool

	// binding replaces the native binding; tests only.
	binding loader.Binding
	app     *app
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{})
}

func newRootCmdWith(o *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "engined",
		Short:         "Manage the inference engine library and model resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			cfg, err := o.loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			o.app, err = newApp(cfg, log, o.binding)
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&o.root, "root", "", "Data directory (defaults ENGINED_ROOT or "+config.DefaultRoot+")")
	root.PersistentFlags().StringVar(&o.platform, "platform", "", "Platform name, e.g. linux64 (defaults to the running platform)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "Log format: console|json")
	root.PersistentFlags().BoolVar(&o.jsonOutput, "json", false, "Output in JSON format")

	root.AddCommand(serveCmd(o), statusCmd(o), versionsCmd(o), modelsCmd(o))
	return root
}

// loadConfig merges file, defaults, environment and flags, in that order of
// increasing precedence.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}
	cfg = cfg.WithDefaults().ApplyEnv()
	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = o.root
	}
	if flags.Changed("platform") {
		cfg.Platform = o.platform
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	return cfg, nil
}

func (o *rootOptions) print(w io.Writer, v any, table func(tw *tabwriter.Writer)) error {
	if o.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func serveCmd(o *rootOptions) *cobra.Command {
	var (
		addr        string
		corsOrigins string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the library and serve the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := o.app
			cfg := a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("cors-origins") {
				cfg.CORSEnabled = true
				cfg.CORSOrigins = splitCSV(corsOrigins)
			}

			st := a.start()
			a.log.Info().Str("status", st.Kind.String()).Msg(st.Info)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			httpapi.SetLogger(a.log.With().Str("component", "http").Logger())
			httpapi.SetBaseContext(ctx)
			httpapi.Configure(httpOptions(cfg))
			srv := &http.Server{
				Addr:              cfg.Addr,
				Handler:           httpapi.NewMux(a.host),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", cfg.Addr).Str("root", a.layout.Root).Msg("engined listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			// Graceful shutdown (Ctrl+C / SIGTERM)
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown error")
			}
			a.host.Cache().Dispose()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults ENGINED_ADDR or "+config.DefaultAddr+")")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins; enables CORS")
	return cmd
}

// httpOptions maps the service configuration onto the admin API options.
func httpOptions(cfg config.Config) httpapi.Options {
	o := httpapi.Options{
		MaxBodyBytes:    cfg.MaxBodyBytes,
		ActivateTimeout: cfg.ActivateTimeout.Std(),
	}
	if cfg.CORSEnabled {
		o.CORSOrigins = cfg.CORSOrigins
		if len(o.CORSOrigins) == 0 {
			o.CORSOrigins = []string{"*"}
		}
	}
	return o
}

func statusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the library and report the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.app.start()
			st := o.app.host.Status()
			return o.print(cmd.OutOrStdout(), st, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "STATUS\t%s\n", st.Status)
				fmt.Fprintf(tw, "INFO\t%s\n", st.Info)
				fmt.Fprintf(tw, "PLATFORM\t%s\n", st.Platform)
				if st.Loaded != nil {
					fmt.Fprintf(tw, "LOADED\t%s\n", st.Loaded.Label)
				}
				if st.Staged != nil {
					fmt.Fprintf(tw, "STAGED\t%s\n", st.Staged.Label)
				}
			})
		},
	}
}

func versionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List and activate library versions",
	}

	var f version.Filter
	list := &cobra.Command{
		Use:   "list",
		Short: "List the versions available for this platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp := o.app.host.Versions(f)
			return o.print(cmd.OutOrStdout(), resp, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "VERSION\tMODE\tCUDA\tCUDNN\tCACHED\tORIGIN")
				for _, v := range resp.Versions {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", v.Version, v.Mode, v.CUDA, v.CuDNN, v.Cached, v.Origin)
				}
			})
		},
	}
	list.Flags().StringVar(&f.Mode, "mode", version.NoFilter, "GPU, CPU or - for all")
	list.Flags().StringVar(&f.CUDA, "cuda", version.NoFilter, "CUDA version or - for all")
	list.Flags().StringVar(&f.TF, "tf", version.NoFilter, "Library version or - for all")

	var req types.ActivateRequest
	activate := &cobra.Command{
		Use:     "activate [version]",
		Short:   "Stage a version for the next start",
		Example: "  engined versions activate 1.15.0 --mode GPU\n  engined versions activate --bundled",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				req.Version = args[0]
			}
			if req.Version == "" && !req.Bundled {
				return fmt.Errorf("activate requires a version or --bundled")
			}
			resp, err := o.app.host.Activate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), resp, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Staged %s; restart to apply.\n", resp.Variant.Label)
			})
		},
	}
	activate.Flags().StringVar(&req.Mode, "mode", "", "GPU or CPU")
	activate.Flags().BoolVar(&req.Bundled, "bundled", false, "Use the library shipped with the binary")

	cmd.AddCommand(list, activate)
	return cmd
}

func modelsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage installed model resources",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List installed models",
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := o.app.host.Models()
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), types.ModelsResponse{Models: ms}, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "NAME\tFILES\tSIZE\tPATH")
				for _, m := range ms {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", m.Name, m.Files, m.Size, m.Path)
				}
			})
		},
	}
	fetchCmd := &cobra.Command{
		Use:     "fetch <name> <source>",
		Short:   "Download and unpack a model archive unless already installed",
		Example: "  engined models fetch inception5h https://storage.googleapis.com/download.tensorflow.org/models/inception5h.zip",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := o.app.host.Cache().EnsureInstalled(cmd.Context(), args[1], args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.AddCommand(list, fetchCmd)
	return cmd
}

