// Command ledgerctl administers a cricketpay ledger from the shell.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	appcli "cricketpay/internal/cli"
	"cricketpay/internal/config"
	"cricketpay/internal/core"
	"cricketpay/internal/log"
	"cricketpay/internal/services"
	"cricketpay/internal/store"
)

// env is what every command runs against.
type env struct {
	cfg     *config.Config
	logger  *log.Logger
	ledger  *services.LedgerService
	remote  store.Remote
	key     string
	out     io.Writer
	cleanup func() error
}

func main() {
	appcli.LoadEnvFile()

	app := &cli.App{
		Name:  "ledgerctl",
		Usage: "manage a cricket match payment ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "ledger",
				Aliases: []string{"l"},
				Usage:   "ledger key (defaults to LEDGER_KEY)",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			playersCommand(),
			{
				Name:   "balances",
				Usage:  "show every player's position for the current weekend",
				Action: withEnv(false, balances),
			},
			{
				Name:  "advance",
				Usage: "close the current weekend and open the next one",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					wk, err := e.ledger.Advance(c.Context, e.key, "cli")
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "current weekend now anchored at %s\n", wk.AnchorDate)
					return nil
				}),
			},
			settleCommand(),
			{
				Name:   "pull",
				Usage:  "restore the ledger from the configured remote",
				Action: withEnv(true, pull),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}

// withEnv loads configuration and backends around a command action.
func withEnv(needRemote bool, action func(*cli.Context, *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if needRemote && !cfg.RemoteEnabled() {
			return errors.New("no remote configured (REMOTE_BACKEND=none)")
		}

		logger := log.New(log.Config{
			Level:     log.ParseLevel(cfg.LogLevel),
			Component: log.ComponentCLI,
			Format:    cfg.LogFormat,
			Output:    os.Stderr,
		})
		log.SetDefault(logger)

		backends, err := appcli.OpenBackends(c.Context, logger, cfg, needRemote)
		if err != nil {
			return err
		}

		key := c.String("ledger")
		if key == "" {
			key = cfg.LedgerKey
		}
		e := &env{
			cfg:     cfg,
			logger:  logger,
			ledger:  services.NewLedgerService(backends.Repository, nil, nil, nil),
			remote:  backends.Remote,
			key:     key,
			out:     c.App.Writer,
			cleanup: backends.Close,
		}
		defer func() {
			if err := e.cleanup(); err != nil {
				logger.Warn("Failed to close backends", log.FieldError, err)
			}
		}()
		return action(c, e)
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "create the ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "anchor", Usage: `first weekend's Saturday, e.g. "2025-08-30" or "tomorrow"`},
			&cli.PathFlag{Name: "roster", Usage: "YAML roster of players to start with"},
		},
		Action: withEnv(false, func(c *cli.Context, e *env) error {
			anchor, err := parseAnchor(c.String("anchor"), time.Now().In(e.cfg.Location()))
			if err != nil {
				return err
			}
			var roster []core.Player
			if path := c.Path("roster"); path != "" {
				if roster, err = store.ReadRoster(path); err != nil {
					return err
				}
			}
			snap, err := e.ledger.Init(c.Context, e.key, anchor, roster)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "created ledger %q anchored at %s with %d players\n", e.key, anchor, len(snap.Data.Players))
			return nil
		}),
	}
}

func playersCommand() *cli.Command {
	return &cli.Command{
		Name:  "players",
		Usage: "list, add or find players",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list every player",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					return listPlayers(c.Context, e, "")
				}),
			},
			{
				Name:      "find",
				Usage:     "fuzzy search players by name or nickname",
				ArgsUsage: "QUERY",
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					if c.NArg() == 0 {
						return errors.New("find needs a query")
					}
					return listPlayers(c.Context, e, c.Args().First())
				}),
			},
			{
				Name:  "add",
				Usage: "add a player",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "player id (generated when empty)"},
					&cli.StringFlag{Name: "first", Required: true, Usage: "first name"},
					&cli.StringFlag{Name: "last", Usage: "last name"},
					&cli.StringFlag{Name: "nickname"},
					&cli.Float64Flag{Name: "balance", Usage: "opening balance, positive when the player owes"},
					&cli.BoolFlag{Name: "regular"},
				},
				Action: withEnv(false, func(c *cli.Context, e *env) error {
					p, err := e.ledger.AddPlayer(c.Context, e.key, core.Player{
						ID:        c.String("id"),
						FirstName: c.String("first"),
						LastName:  c.String("last"),
						Nickname:  c.String("nickname"),
						Balance:   c.Float64("balance"),
						Regular:   c.Bool("regular"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(e.out, "added %s (%s)\n", p.DisplayName(), p.ID)
					return nil
				}),
			},
		},
	}
}

func settleCommand() *cli.Command {
	return &cli.Command{
		Name:  "settle",
		Usage: "mark a player's current weekend fully paid, or unpaid",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "player", Aliases: []string{"p"}, Required: true},
			&cli.BoolFlag{Name: "unpaid", Usage: "reset payments instead of settling"},
		},
		Action: withEnv(false, func(c *cli.Context, e *env) error {
			sum, err := e.ledger.Settle(c.Context, e.key, c.String("player"), !c.Bool("unpaid"))
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s: balance %.2f (%s)\n", sum.Player.DisplayName(), sum.CurrentBalance, sum.Status)
			return nil
		}),
	}
}

func listPlayers(ctx context.Context, e *env, query string) error {
	players, err := e.ledger.Players(ctx, e.key, query)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tNICKNAME\tBALANCE\tREGULAR")
	for _, p := range players {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%t\n", p.ID, p.DisplayName(), p.Nickname, p.Balance, p.Regular)
	}
	return tw.Flush()
}

func balances(c *cli.Context, e *env) error {
	sum, err := e.ledger.Summary(c.Context, e.key)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "weekend %s (v%d)\n", sum.Weekend.AnchorDate, sum.Version)
	fmt.Fprintln(tw, "PLAYER\tPREVIOUS\tDUE\tPAID\tBALANCE\tSTATUS")
	for _, p := range sum.Players {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			p.Player.DisplayName(), p.PreviousBalance, p.TotalDue, p.TotalPaid, p.CurrentBalance, p.Status)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%.2f\t%.2f\t%.2f\t\n", sum.Weekend.TotalDue, sum.Weekend.TotalPaid, sum.Weekend.Outstanding)
	return tw.Flush()
}

func pull(c *cli.Context, e *env) error {
	snap, err := e.remote.Pull(c.Context, e.key)
	if err != nil {
		return fmt.Errorf("pull %q: %w", e.key, err)
	}
	restored, err := e.ledger.Restore(c.Context, e.key, snap.Data, snap.Version)
	if err != nil {
		return err
	}
	e.logger.Info("Ledger restored from remote", log.FieldLedgerKey, e.key, log.FieldVersion, restored.Version)
	fmt.Fprintf(e.out, "restored %q from remote version %d as local version %d\n", e.key, snap.Version, restored.Version)
	return nil
}
