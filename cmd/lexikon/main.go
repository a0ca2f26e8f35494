package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lexikon/internal"
	"github.com/starford/lexikon/internal/batch"
	"github.com/starford/lexikon/internal/mcpserver"
	"github.com/starford/lexikon/internal/register"
	pkgconfig "github.com/starford/lexikon/pkg/config"
)

const version = "1.0.0"

// loadConfig reads the config file. Without an explicit --config a missing
// default file means running on built-in defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	load := pkgconfig.LoadOptional[internal.Config]
	if cmd.IsSet("config") {
		load = pkgconfig.Load[internal.Config]
	}
	if err := load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// open bootstraps the registers for a one-shot command. Logs go to stderr
// so stdout carries only the command's output.
func open(cmd *cli.Command, extra ...internal.Option) (*internal.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	opts := append([]internal.Option{internal.WithConfig(cfg), internal.WithLogger(logger)}, extra...)
	return internal.Open(opts...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func apply(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("apply: exactly one batch file expected")
	}
	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return err
	}
	items, err := batch.Decode(data)
	if err != nil {
		return err
	}

	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.Service.ApplyBatch(ctx, items)
	if err != nil {
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d records rejected", len(res.Failed), len(items)), 2)
	}
	return nil
}

func seed(ctx context.Context, cmd *cli.Command) error {
	volume := cmd.String("volume")
	if volume == "" || cmd.Args().Len() != 1 {
		return fmt.Errorf("seed: --volume and exactly one register file expected")
	}
	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return err
	}
	var records []register.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("seed: parse %s: %w", cmd.Args().First(), err)
	}

	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.Service.Seed(ctx, volume, records, cmd.Bool("replace")); err != nil {
		return err
	}
	rt.Logger.Info("volume seeded", slog.String("volume", volume), slog.Int("lemmas", len(records)))
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	volume, start := cmd.String("volume"), cmd.String("alphabetic")
	if (volume == "") == (start == "") {
		return fmt.Errorf("render: give exactly one of --volume or --alphabetic")
	}

	rt, err := open(cmd, internal.WithoutIndex())
	if err != nil {
		return err
	}
	defer rt.Close()

	var table string
	if volume != "" {
		table, err = rt.Service.RenderVolume(ctx, volume)
	} else {
		table, err = rt.Service.RenderAlphabetic(ctx, start)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(os.Stdout, table)
	return err
}

func check(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(cmd, internal.WithoutIndex())
	if err != nil {
		return err
	}
	defer rt.Close()

	issues := rt.Service.Check(ctx)
	if issues == nil {
		issues = []register.Issue{}
	}
	if err := printJSON(issues); err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.Severity == register.SeverityError {
			return cli.Exit("register check found errors", 2)
		}
	}
	return nil
}

func export(ctx context.Context, cmd *cli.Command) error {
	rt, err := open(cmd, internal.WithoutIndex())
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.String("out")
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	n, err := rt.Service.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", out, err)
	}
	rt.Logger.Info("export written", slog.String("path", out), slog.Int("rows", n))
	return nil
}

func serveMCP(_ context.Context, cmd *cli.Command) error {
	rt, err := open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()
	return mcpserver.New(rt.Service, version).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:    "lexikon",
		Usage:   "Consistency engine for the volume and alphabetic registers of a multi-volume encyclopedia",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the inbox watcher",
				Action: serve,
			},
			{
				Name:      "apply",
				Usage:     "Apply an update batch file and persist the changed registers",
				ArgsUsage: "FILE",
				Action:    apply,
			},
			{
				Name:      "seed",
				Usage:     "Install the initial register of a volume from a JSON file",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "volume", Usage: "Volume name, e.g. II,1"},
					&cli.BoolFlag{Name: "replace", Usage: "Replace a loaded register"},
				},
				Action: seed,
			},
			{
				Name:  "render",
				Usage: "Print a volume or alphabetic register as a wiki table",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "volume", Usage: "Volume name, e.g. I,1"},
					&cli.StringFlag{Name: "alphabetic", Usage: "Alphabetic range start, e.g. ak"},
				},
				Action: render,
			},
			{
				Name:   "check",
				Usage:  "Report broken links, invalid lemmas and duplicated titles",
				Action: check,
			},
			{
				Name:  "export",
				Usage: "Write every register as a Parquet file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "registers.parquet", Usage: "Output file"},
				},
				Action: export,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
