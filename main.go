package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"research/internal/config"
	"research/sdk/research"
)

func main() {
	app := &cli.App{
		Name:  "research",
		Usage: "Terminal client for the research-chat backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Backend base URL (overrides config)",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token (overrides config)",
				EnvVars: []string{"RESEARCH_TOKEN"},
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write structured logs to this file",
			},
		},
		Action: runTUI,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Run a single query and print the answer",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "web",
						Usage: "Allow web search during research",
					},
					&cli.StringFlag{
						Name:  "chat",
						Usage: "Existing chat ID; a new chat is created when omitted",
					},
				},
				Action: runAsk,
			},
			{
				Name:   "chats",
				Usage:  "List chats",
				Action: runChats,
			},
			{
				Name:   "health",
				Usage:  "Check backend health",
				Action: runHealth,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup builds the config, logger and SDK client shared by all commands.
func setup(c *cli.Context) (*config.Config, *research.Client, error) {
	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return nil, nil, err
	}
	if v := c.String("server"); v != "" {
		cfg.ServerURL = v
	}
	if v := c.String("token"); v != "" {
		cfg.Token = v
	}

	logger, err := buildLogger(cfg.LogLevel, c.String("log-file"))
	if err != nil {
		return nil, nil, err
	}

	opts := []research.ClientOption{
		research.WithLogger(logger),
	}
	if cfg.Token != "" {
		opts = append(opts, research.WithStaticToken(cfg.Token))
	}
	if cfg.Timeout.Duration > 0 {
		opts = append(opts, research.WithTimeout(cfg.Timeout.Duration))
	}

	return cfg, research.NewClient(cfg.ServerURL, opts...), nil
}

// buildLogger writes JSON logs to the given file. Logging to the terminal
// would fight the TUI for the screen, so without a file it stays silent.
func buildLogger(level, path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(f),
		lvl,
	)
	return zap.New(core), nil
}

func runTUI(c *cli.Context) error {
	cfg, client, err := setup(c)
	if err != nil {
		return err
	}

	m := newTUIModel(client, cfg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.shared.setProgram(p)

	_, err = p.Run()
	return err
}

func runAsk(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("usage: research ask <query>")
	}

	_, client, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	chatID := c.String("chat")
	if chatID == "" {
		chat, err := client.CreateChat(ctx, nil)
		if err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		chatID = chat.ID
	}

	sess, err := client.Ask(ctx, chatID, &research.QueryRequest{
		Query:  query,
		UseWeb: c.Bool("web"),
	}, nil)
	if err != nil {
		return err
	}

	fmt.Println(sess.Answer)
	if sess.Confidence != "" {
		fmt.Fprintf(os.Stderr, "\nconfidence: %s (%dms)\n", sess.Confidence, sess.TotalLatencyMS)
	}
	for i, src := range sess.Sources {
		fmt.Fprintf(os.Stderr, "[%d] %s %s\n", i+1, src.Title, src.URL)
	}
	return nil
}

func runChats(c *cli.Context) error {
	_, client, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	chats, err := client.ListChats(ctx)
	if err != nil {
		return err
	}
	for _, chat := range chats {
		title := "(untitled)"
		if chat.Title != nil {
			title = *chat.Title
		}
		fmt.Printf("%s  %-40s  %d messages\n", chat.ID, title, chat.MessageCount)
	}
	return nil
}

func runHealth(c *cli.Context) error {
	_, client, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s\n", health.App, health.Status)
	return nil
}
