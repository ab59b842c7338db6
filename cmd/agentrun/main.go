// agentrun loads an agent program and runs it to quiescence from the
// command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Harshitk-cp/agentspeak/internal/action"
	"github.com/Harshitk-cp/agentspeak/internal/agent"
	"github.com/Harshitk-cp/agentspeak/internal/buildconfig"
	"github.com/Harshitk-cp/agentspeak/internal/domain"
	"github.com/Harshitk-cp/agentspeak/internal/fuzzy"
	"github.com/Harshitk-cp/agentspeak/internal/program"
	"github.com/Harshitk-cp/agentspeak/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "agentrun",
		Short:         "Run BDI agent programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())
	return root
}

type runOptions struct {
	maxSteps  int
	storage   string
	redisAddr string
	goals     []string
	percepts  []string
	guard     string
	rank      string
	parallel  bool
	threshold float64
	priority  bool
	verbose   bool
}

func runCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run <program.yaml>",
		Short: "Step a program until it is idle or the step limit is reached",
		Long: `Loads a YAML agent program, posts any extra goals and percepts, then
steps the agent until no trigger or runnable intention is left.

Unrecoverable failures are printed as they happen; the final belief base
is printed at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.maxSteps, "max-steps", 1000, "maximum number of reasoning steps")
	f.StringVar(&opts.storage, "storage", "memory", "agent storage backend (memory, redis)")
	f.StringVar(&opts.redisAddr, "redis-addr", "localhost:6379", "redis address for --storage redis")
	f.StringArrayVar(&opts.goals, "goal", nil, "achievement goal to post before running (repeatable)")
	f.StringArrayVar(&opts.percepts, "percept", nil, "ground percept to add before running (repeatable)")
	f.StringVar(&opts.guard, "guard-aggregation", "all", "guard aggregation (all, any, max, min, weighted_sum)")
	f.StringVar(&opts.rank, "rank-aggregation", "max", "plan ranking aggregation")
	f.BoolVar(&opts.parallel, "parallel", false, "run every applicable plan above the threshold")
	f.Float64Var(&opts.threshold, "threshold", 0, "minimum degree for parallel selection")
	f.BoolVar(&opts.priority, "priority-queue", false, "order pending triggers by priority")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <program.yaml>...",
		Short: "Validate program files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				p, err := program.LoadFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d beliefs, %d goals, %d rules, %d plans\n",
					p.Name, len(p.Beliefs), len(p.Goals), len(p.Rules), len(p.Plans))
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentrun %s\n", buildconfig.Current())
		},
	}
}

func (o runOptions) config() (agent.Config, error) {
	guard, err := fuzzy.ByName(o.guard)
	if err != nil {
		return agent.Config{}, err
	}
	rank, err := fuzzy.ByName(o.rank)
	if err != nil {
		return agent.Config{}, err
	}
	return agent.Config{
		GuardAggregation:  guard,
		RankAggregation:   rank,
		ParallelSelection: o.parallel,
		Threshold:         o.threshold,
		PriorityQueue:     o.priority,
	}, nil
}

func (o runOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o runOptions) openStorage(ctx context.Context, agentID string) (domain.Storage, func(), error) {
	switch o.storage {
	case "memory":
		return store.NewMemoryStorage(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: o.redisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedisStorage(client, agentID), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", o.storage)
}

func run(ctx context.Context, out io.Writer, path string, opts runOptions) error {
	p, err := program.LoadFile(path)
	if err != nil {
		return err
	}
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	storage, closeStorage, err := opts.openStorage(ctx, p.Name)
	if err != nil {
		return err
	}
	defer closeStorage()

	a, err := agent.New(p, cfg,
		agent.WithID(p.Name),
		agent.WithLogger(logger),
		agent.WithStorage(storage),
		agent.WithActions(action.Builtins(logger)),
	)
	if err != nil {
		return err
	}

	for _, src := range opts.percepts {
		l, err := domain.ParseLiteral(src)
		if err != nil {
			return fmt.Errorf("percept %q: %w", src, err)
		}
		if err := a.Perceive(l); err != nil {
			return fmt.Errorf("percept %q: %w", src, err)
		}
	}
	for _, src := range opts.goals {
		l, err := domain.ParseLiteral(src)
		if err != nil {
			return fmt.Errorf("goal %q: %w", src, err)
		}
		a.Post(l)
	}

	res := a.Run(ctx, opts.maxSteps)

	fmt.Fprintf(out, "steps: %d, cycle: %d\n", res.Steps, a.Cycle())
	for _, goal := range res.Completed {
		fmt.Fprintf(out, "completed: %s\n", goal)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(out, "failure: %s\n", f)
	}
	fmt.Fprintln(out, "beliefs:")
	for _, b := range a.Beliefs() {
		fmt.Fprintf(out, "  %s\n", b.Literal)
	}
	if len(a.Pending()) > 0 || a.Intentions() > 0 {
		fmt.Fprintf(out, "stopped with %d pending triggers and %d intentions\n", len(a.Pending()), a.Intentions())
	}
	return ctx.Err()
}
