package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/artpar/dockwrkr/internal/core/domain"
	"github.com/artpar/dockwrkr/internal/core/outcome"
	"github.com/artpar/dockwrkr/internal/core/status"
	"github.com/artpar/dockwrkr/internal/shell/configfile"
	"github.com/artpar/dockwrkr/internal/shell/docker"
	"github.com/artpar/dockwrkr/internal/shell/orchestrator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// connectFunc opens a container runtime for a Docker host. The closer
// releases the connection.
type connectFunc func(ctx context.Context, host string) (orchestrator.Runtime, io.Closer, error)

// cli holds global flags and output streams for one invocation.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	connect connectFunc

	configPath string
	file       string
	logLevel   string
	logFormat  string
	failFast   bool
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr, connect: connectDocker}
}

// execute runs args and returns the process exit code.
func (c *cli) execute(ctx context.Context, args []string) int {
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(c.stderr, "dockwrkr: %v\n", err)
	}
	return exitCodeFor(err)
}

func connectDocker(ctx context.Context, host string) (orchestrator.Runtime, io.Closer, error) {
	client, err := docker.NewDockerClient(host)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return docker.NewRuntime(client), client, nil
}

// =============================================================================
// Command Tree
// =============================================================================

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "dockwrkr",
		Short:         "Manage the lifecycle of linked Docker containers",
		Long:          "dockwrkr starts, stops and inspects the containers declared in dockwrkr.yml,\nhonoring the dependency order implied by their links.",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "settings file")
	pf.StringVar(&c.file, "file", "", "container document (default: nearest "+configfile.FileName+")")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	pf.BoolVar(&c.failFast, "fail-fast", false, "stop at the first container that fails")

	root.AddCommand(
		c.lifecycleCommand("start", "Create and start containers", false,
			func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, _ time.Duration) outcome.Outcome[[]domain.Result] {
				return o.Start(ctx, sel)
			}),
		c.lifecycleCommand("stop", "Stop running containers", true,
			func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
				return o.Stop(ctx, sel, grace)
			}),
		c.removeCommand(),
		c.lifecycleCommand("restart", "Restart containers", true,
			func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
				return o.Restart(ctx, sel, grace)
			}),
		c.lifecycleCommand("recreate", "Remove and start containers from their definitions", true,
			func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
				return o.Recreate(ctx, sel, grace)
			}),
		c.lifecycleCommand("pull", "Pull container images", false,
			func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, _ time.Duration) outcome.Outcome[[]domain.Result] {
				return o.Pull(ctx, sel)
			}),
		c.resetCommand(),
		c.statusCommand(),
	)

	return root
}

type lifecycleFunc func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, grace time.Duration) outcome.Outcome[[]domain.Result]

func (c *cli) lifecycleCommand(name, short string, withGrace bool, run lifecycleFunc) *cobra.Command {
	var (
		all     bool
		seconds int
	)

	cmd := &cobra.Command{
		Use:   name + " [container...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := selectionOf(args, all)
			if err != nil {
				return err
			}
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				return run(ctx, s.orchestrator, sel, s.grace(seconds)).Err()
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "target every defined container")
	if withGrace {
		cmd.Flags().IntVarP(&seconds, "time", "t", -1, "seconds to wait for stop before killing (default from settings)")
	}
	return cmd
}

func (c *cli) removeCommand() *cobra.Command {
	var force bool
	cmd := c.lifecycleCommand("remove", "Remove containers", true,
		func(ctx context.Context, o *orchestrator.Orchestrator, sel orchestrator.Selection, grace time.Duration) outcome.Outcome[[]domain.Result] {
			return o.Remove(ctx, sel, grace, force)
		})
	cmd.Aliases = []string{"rm"}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "stop running containers before removing them")
	return cmd
}

func (c *cli) resetCommand() *cobra.Command {
	var seconds int
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Force-remove every container managed by dockwrkr",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				return s.orchestrator.Reset(ctx, s.grace(seconds)).Err()
			})
		},
	}
	cmd.Flags().IntVarP(&seconds, "time", "t", -1, "seconds to wait for stop before killing (default from settings)")
	return cmd
}

func (c *cli) statusCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "status [container...]",
		Aliases: []string{"ps"},
		Short:   "Show container status",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := orchestrator.Selection{Names: args, All: all}
			return c.withSession(cmd, func(ctx context.Context, s *session) error {
				rows, err := s.orchestrator.Status(ctx, sel).Get()
				if err != nil {
					return err
				}
				return writeStatus(c.stdout, rows)
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "report every defined container")
	return cmd
}

// selectionOf requires either explicit names or --all.
func selectionOf(args []string, all bool) (orchestrator.Selection, error) {
	switch {
	case all && len(args) > 0:
		return orchestrator.Selection{}, errors.New("container names cannot be combined with --all")
	case !all && len(args) == 0:
		return orchestrator.Selection{}, errors.New("specify container names or --all")
	}
	return orchestrator.Selection{Names: args, All: all}, nil
}

// =============================================================================
// Session
// =============================================================================

// session is everything a command needs once settings and the container
// document are loaded.
type session struct {
	config       *Config
	orchestrator *orchestrator.Orchestrator
}

// grace returns seconds as a duration, or the configured default when
// seconds is negative.
func (s *session) grace(seconds int) time.Duration {
	if seconds < 0 {
		return s.config.Stop.GraceDuration()
	}
	return time.Duration(seconds) * time.Second
}

func (c *cli) withSession(cmd *cobra.Command, fn func(context.Context, *session) error) error {
	ctx := cmd.Context()

	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return &CommandError{Op: "load settings", Err: err, ExitCode: ExitConfigError}
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}

	// Each record carries its own command attribute
	logger := SetupLogger(cfg, c.stderr).With("invocation", uuid.NewString())

	project, err := c.loadProject()
	if err != nil {
		return &CommandError{Op: "load " + configfile.FileName, Err: err, ExitCode: ExitConfigError}
	}
	logger.Debug("loaded container document",
		"file", project.ConfigFile,
		"containers", len(project.Definitions),
	)

	host := cfg.Docker.Host
	if project.DockerHost != "" {
		host = project.DockerHost
	}
	runtime, closer, err := c.connect(ctx, host)
	if err != nil {
		return &CommandError{Op: "connect to docker", Err: err, ExitCode: ExitDockerError}
	}
	defer closer.Close()

	return fn(ctx, &session{
		config: cfg,
		orchestrator: orchestrator.New(project, runtime, logger, orchestrator.Options{
			FailFast: c.failFast,
		}),
	})
}

func (c *cli) loadProject() (*domain.Project, error) {
	path := c.file
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if path, err = configfile.Find(cwd); err != nil {
			return nil, err
		}
	}
	return configfile.Load(path)
}

// =============================================================================
// Output
// =============================================================================

func writeStatus(w io.Writer, rows []status.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, strings.Join(status.Columns, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r.Fields(), "\t"))
	}
	return tw.Flush()
}
