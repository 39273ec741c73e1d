// Package cli 定義 letmeask 終端機客戶端的 cobra 指令
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"letmeask/internal/auth"
	"letmeask/internal/client"
	"letmeask/internal/logging"
	"letmeask/pkg/config"
)

var version = "dev" // 建置時以 ldflags 設定

// options 是所有指令共用的旗標
type options struct {
	configPath string
	serverURL  string
	token      string
	logLevel   string
	logFile    string
}

// NewRootCommand 建立根指令與所有子指令
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "letmeask",
		Short: "Live Q&A rooms in your terminal",
		Long: `letmeask joins a live Q&A room, shows questions as they arrive,
and lets signed in users ask new ones.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ./pkg/config/config.yaml or ./config.yaml)")
	flags.StringVar(&opts.serverURL, "server", "", "letmeask server URL (overrides client.serverurl)")
	flags.StringVar(&opts.token, "token", "", "session token (overrides the saved sign in)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(newRoomCommand(opts))
	root.AddCommand(newLoginCommand(opts))
	root.AddCommand(newLogoutCommand(opts))
	root.AddCommand(newCreateCommand(opts))
	return root
}

// Execute 執行根指令，由 main 呼叫
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session 是一次指令執行所需的客戶端元件
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *client.Client
	identity *client.Identity
	provider *auth.Provider

	closers []io.Closer
}

func (s *session) Close() {
	if s.provider != nil {
		s.provider.Close()
	}
	for _, c := range s.closers {
		c.Close()
	}
}

// newSession 讀取設定、建立記錄器，並以保存的 token 還原登入狀態。
// 互動模式下沒有指定 --log-file 時不輸出日誌，避免破壞畫面。
func (o *options) newSession(ctx context.Context, cmd *cobra.Command, interactive bool) (*session, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.serverURL != "" {
		cfg.Client.ServerURL = o.serverURL
	}
	if o.token != "" {
		cfg.Client.Token = o.token
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	s := &session{cfg: cfg}

	var out io.Writer = cmd.ErrOrStderr()
	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		s.closers = append(s.closers, f)
		out = f
	} else if interactive {
		out = io.Discard
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: out})
	if err != nil {
		s.Close()
		return nil, err
	}
	s.logger = logger

	s.client, err = client.New(cfg.Client.ServerURL, client.WithLogger(logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	identityOpts := []client.IdentityOption{
		client.WithIdentityLogger(logger),
		client.WithOpener(func(url string) error {
			fmt.Fprintf(cmd.ErrOrStderr(), "Opening %s\n", url)
			if err := client.OpenBrowser(url); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Open the link above in your browser to continue.")
			}
			return nil
		}),
	}
	if store, err := client.DefaultTokenStore(); err == nil {
		identityOpts = append(identityOpts, client.WithTokenStore(store))
	} else {
		logger.Warn("token store unavailable", "error", err)
	}
	s.identity = client.NewIdentity(s.client, identityOpts...)

	if err := s.identity.Restore(ctx, cfg.Client.Token); err != nil {
		s.Close()
		return nil, err
	}

	s.provider = auth.NewProvider(s.identity, auth.WithLogger(logger))
	return s, nil
}
