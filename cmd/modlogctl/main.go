// Command modlogctl manages slash command registration and reads the
// infraction store without starting the bot.
//
// Usage:
//
//	modlogctl commands sync|list|clean [--guild <id>]
//	modlogctl infraction info <guild> <id>
//	modlogctl history raw <guild> <user>
//	modlogctl search <guild> [--user <id>] [--mod <id>] [--type <type>] [--active] [--or] [--not] [--count] [words...]
package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModlog/internal/commands"
	"github.com/PancyStudios/PancyModlog/internal/commands/infractions"
	"github.com/PancyStudios/PancyModlog/internal/commands/shared"
	"github.com/PancyStudios/PancyModlog/pkg/config"
	"github.com/PancyStudios/PancyModlog/pkg/database"
	"github.com/PancyStudios/PancyModlog/pkg/discord"
	"github.com/PancyStudios/PancyModlog/pkg/logger"
	"github.com/PancyStudios/PancyModlog/pkg/models"
	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"
)

func main() {
	guildFlag := &cli.StringFlag{
		Name:  "guild",
		Usage: "target a guild instead of the global commands",
	}

	app := cli.App{
		Name:    "modlogctl",
		Usage:   "maintenance CLI for PancyModlog",
		Version: config.Version,
		Before: func(cctx *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.ErrorWebhook, "")
			return nil
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:  "commands",
			Usage: "manage the slash commands registered with Discord",
			Subcommands: []*cli.Command{
				{
					Name:   "sync",
					Usage:  "replace the registered commands with the current definitions",
					Flags:  []cli.Flag{guildFlag},
					Action: runSync,
				},
				{
					Name:   "list",
					Usage:  "list the registered commands",
					Flags:  []cli.Flag{guildFlag},
					Action: runList,
				},
				{
					Name:   "clean",
					Usage:  "remove every registered command",
					Flags:  []cli.Flag{guildFlag},
					Action: runClean,
				},
			},
		},
		{
			Name:  "infraction",
			Usage: "read stored infractions",
			Subcommands: []*cli.Command{
				{
					Name:      "info",
					Usage:     "print an infraction as JSON",
					ArgsUsage: "<guild> <id>",
					Action:    runInfraction,
				},
			},
		},
		{
			Name:  "history",
			Usage: "read user histories",
			Subcommands: []*cli.Command{
				{
					Name:      "raw",
					Usage:     "print a user's history id lists as JSON",
					ArgsUsage: "<guild> <user>",
					Action:    runHistory,
				},
			},
		},
		{
			Name:      "search",
			Usage:     "search a guild's infractions",
			ArgsUsage: "<guild> [words...]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "user", Usage: "offender id"},
				&cli.StringFlag{Name: "mod", Usage: "moderator id"},
				&cli.StringFlag{Name: "type", Usage: "infraction type"},
				&cli.BoolFlag{Name: "active", Usage: "only active infractions"},
				&cli.BoolFlag{Name: "or", Usage: "match any word instead of all"},
				&cli.BoolFlag{Name: "not", Usage: "invert the keyword match"},
				&cli.BoolFlag{Name: "count", Usage: "print only the number of matches"},
			},
			Action: runSearch,
		},
	}
	app.RunAndExitOnError()
}

// newClient builds a client with every command definition loaded. The
// gateway is never opened; the application id comes from the REST API.
func newClient() (*discord.ExtendedClient, error) {
	client, err := discord.NewClient(config.Get().BotToken)
	if err != nil {
		return nil, err
	}
	commands.RegisterAll(client, &shared.Deps{})
	return client, nil
}

func runSync(cctx *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	guildID := cctx.String("guild")
	if err := client.CommandHandler.SyncCommands(guildID); err != nil {
		return fmt.Errorf("sync commands: %w", err)
	}
	n := len(client.CommandHandler.GlobalCommands())
	if guildID != "" {
		n = len(client.CommandHandler.DevCommands())
	}
	logger.Success(fmt.Sprintf("✅ %d comandos sincronizados", n), "ModlogCtl")
	return nil
}

func runList(cctx *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	cmds, err := client.CommandHandler.ListCommands(cctx.String("guild"))
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	if len(cmds) == 0 {
		fmt.Println("no commands registered")
		return nil
	}
	for i, cmd := range cmds {
		fmt.Printf("%d. /%s - %s (ID: %s)\n", i+1, cmd.Name, cmd.Description, cmd.ID)
	}
	return nil
}

func runClean(cctx *cli.Context) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	return client.CommandHandler.UnregisterCommands(cctx.String("guild"))
}

// withStore opens the configured storage for one read
func withStore(fn func(ctx context.Context, store *database.Store) error) error {
	storage, err := database.Open(config.Get())
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return fn(ctx, storage.Store)
}

func guildArg(cctx *cli.Context) (string, error) {
	guildID := cctx.Args().First()
	if guildID == "" {
		return "", cli.Exit("need to provide a guild id as the first argument", 1)
	}
	return guildID, nil
}

func runInfraction(cctx *cli.Context) error {
	guildID, err := guildArg(cctx)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(cctx.Args().Get(1), 10, 64)
	if err != nil || id <= 0 {
		return cli.Exit("need to provide a valid infraction id", 1)
	}

	return withStore(func(ctx context.Context, store *database.Store) error {
		inf, err := store.GetInfraction(ctx, guildID, id)
		if err != nil {
			return err
		}
		return printJSON(inf)
	})
}

func runHistory(cctx *cli.Context) error {
	guildID, err := guildArg(cctx)
	if err != nil {
		return err
	}
	userID := cctx.Args().Get(1)
	if userID == "" {
		return cli.Exit("need to provide a user id", 1)
	}

	return withStore(func(ctx context.Context, store *database.Store) error {
		h, err := store.GetHistory(ctx, guildID, userID)
		if err != nil {
			return err
		}
		if h == nil {
			return fmt.Errorf("no history for %s", userID)
		}
		return printJSON(h)
	})
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runSearch(cctx *cli.Context) error {
	guildID, err := guildArg(cctx)
	if err != nil {
		return err
	}

	q := database.SearchQuery{
		Keywords: cctx.Args().Tail(),
		UserID:   cctx.String("user"),
		ModID:    cctx.String("mod"),
		Or:       cctx.Bool("or"),
		Not:      cctx.Bool("not"),
	}
	if raw := cctx.String("type"); raw != "" {
		t, ok := models.ParseInfractionType(strings.ToLower(raw))
		if !ok {
			return cli.Exit("unknown infraction type: "+raw, 1)
		}
		q.Type = t
	}
	if cctx.IsSet("active") {
		active := cctx.Bool("active")
		q.Active = &active
	}

	return withStore(func(ctx context.Context, store *database.Store) error {
		if cctx.Bool("count") {
			n, err := store.Count(ctx, guildID, q)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		}

		start := time.Now()
		infs, err := store.Search(ctx, guildID, q)
		if err != nil {
			return err
		}
		fmt.Print(infractions.FormatTable(infs))
		fmt.Printf("%d results in %v\n", len(infs), time.Since(start).Round(time.Millisecond))
		return nil
	})
}
