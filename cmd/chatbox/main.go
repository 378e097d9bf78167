// Package main provides the chatbox CLI entry point.
// chatbox is a terminal chat client that asks a remote chat API first and falls back
// to local mock replies, plus a small development backend serving the same API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"chatbox/internal/config"
	"chatbox/internal/logger"
	"chatbox/internal/server"
	"chatbox/internal/tui"
	"chatbox/internal/version"
)

var (
	logLevel   string
	logFile    string
	testMode   bool
	configFile string
	detailed   bool

	v   = config.New()
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatbox",
	Short: "chatbox - terminal chat with an AI assistant",
	Long: `chatbox is a terminal chat client. Messages go to a remote chat API;
when it is unreachable, local mock replies keep the conversation going.`,
	PersistentPreRunE: loadConfig,
	RunE:              runChat, // Default behavior is the interactive chat
	SilenceUsage:      true,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat view",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message and print the reply",
	Long: `Send one message through a fresh conversation and print the assistant reply.
The reply comes from the remote API, or from the mock responder when the API fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development chat backend",
	Long: `Serve POST /api/chat and GET /api/health for local development.
Replies come from the mock responder or, with serve.provider=openai, from OpenAI.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	// Version output needs no configuration
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		if detailed {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetDetailedVersion())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFormattedVersion())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "", "Set log level (debug|info|warn|error) [default: info]")
	flags.StringVar(&logFile, "log-file", "", "Write logs to file instead of stderr")
	flags.BoolVar(&testMode, "test-mode", false, "Run with deterministic ids and timestamps")
	flags.StringVar(&configFile, "config", "", "Config file (default is $XDG_CONFIG_HOME/chatbox/config.yaml)")
	flags.String("api-url", config.DefaultAPIURL, "Base URL of the chat API")
	flags.Bool("offline", false, "Skip the chat API and always use mock replies")
	flags.Uint64("seed", 0, "Seed for mock reply selection (0 = random)")
	flags.String("render-style", config.DefaultRenderStyle, "Markdown style for assistant replies (dark, light, notty, auto)")

	serveCmd.Flags().String("addr", config.DefaultServeAddr, "Listen address")
	serveCmd.Flags().String("provider", config.DefaultServeProvider, "Reply provider (mock|openai)")

	versionCmd.Flags().BoolVar(&detailed, "detailed", false, "Show build details")

	bindings := []struct {
		key  string
		flag string
		cmd  *cobra.Command
	}{
		{config.KeyLogLevel, "log-level", rootCmd},
		{config.KeyLogFile, "log-file", rootCmd},
		{config.KeyTestMode, "test-mode", rootCmd},
		{config.KeyAPIURL, "api-url", rootCmd},
		{config.KeyOffline, "offline", rootCmd},
		{config.KeySeed, "seed", rootCmd},
		{config.KeyRenderStyle, "render-style", rootCmd},
		{config.KeyServeAddr, "addr", serveCmd},
		{config.KeyServeProvider, "provider", serveCmd},
	}
	for _, b := range bindings {
		flag := b.cmd.PersistentFlags().Lookup(b.flag)
		if flag == nil {
			flag = b.cmd.Flags().Lookup(b.flag)
		}
		if err := v.BindPFlag(b.key, flag); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", b.flag, err)
			os.Exit(1)
		}
	}

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig configures the logger first so configuration loading can log.
func loadConfig(_ *cobra.Command, _ []string) error {
	if err := logger.Configure(logLevel, logFile, testMode); err != nil {
		return fmt.Errorf("failed to configure logger: %w", err)
	}

	loaded, err := config.Load(v, config.LoadOptions{
		ConfigFile: configFile,
		SkipDotEnv: testMode,
	})
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func runChat(_ *cobra.Command, _ []string) error {
	// The chat view owns the terminal; logs only go to a file
	if cfg.LogFile == "" {
		logger.SetOutput(io.Discard)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	logger.Info("Starting chatbox", "version", version.Version, "api_url", cfg.APIURL, "offline", cfg.Offline)

	model := tui.New(a.newStore(), tui.Options{Renderer: a.markdown})
	defer model.Close()

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reply, err := a.ask(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), a.markdown.RenderOrPlain(reply.Text))
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if !testMode {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	provider, err := a.newProvider(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Addr:           cfg.Serve.Addr,
		AllowedOrigins: cfg.Serve.AllowedOrigins,
	}, provider)

	logger.Info("Development backend listening", "addr", cfg.Serve.Addr, "provider", provider.Name())
	fmt.Fprintf(cmd.OutOrStdout(), "chatbox serving %s on %s\n", provider.Name(), cfg.Serve.Addr)
	return srv.Run(ctx)
}
