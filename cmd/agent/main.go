// Command agent is the collaborative-editing client from spec §4.6: it
// negotiates a session with a server over pkg/transport and bridges the
// resulting document to a host editor through internal/hostbridge's
// newline-JSON stdio adapter.
//
// The CLI surface follows the teacher's cobra root-command-does-the-work
// shape (cmd/wt/main.go in the retrieval pack), rather than the teacher's
// own server, which took its configuration from bare environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shiv248/editagent/internal/config"
	"github.com/shiv248/editagent/internal/hostbridge"
	"github.com/shiv248/editagent/internal/protocol"
	"github.com/shiv248/editagent/pkg/client"
	"github.com/shiv248/editagent/pkg/logger"
	"github.com/shiv248/editagent/pkg/transport"
)

func main() {
	var configPath, addrOverride, nameOverride, logLevelOverride string

	root := &cobra.Command{
		Use:   "editagent",
		Short: "editagent — collaborative plain-text editing client",
		Long:  "Connects to a collaboration server and mirrors its document into a host editor buffer over stdio.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, addrOverride, nameOverride, logLevelOverride)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.Flags().StringVar(&addrOverride, "address", "", "server address (host:port, port, or unix socket path)")
	root.Flags().StringVar(&nameOverride, "display-name", "", "display name sent during negotiation")
	root.Flags().StringVar(&logLevelOverride, "log-level", "", "debug, info, or error")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, addrOverride, nameOverride, logLevelOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addrOverride != "" {
		cfg.Address = addrOverride
	}
	if nameOverride != "" {
		cfg.DisplayName = nameOverride
	}
	if logLevelOverride != "" {
		cfg.LogLevel = logLevelOverride
	}

	closer, err := logger.Init(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closer.Close()

	logger.Info("agent: starting, address=%s display_name=%s", cfg.Address, cfg.DisplayName)

	editor := hostbridge.New(os.Stdin, os.Stdout)

	// cl is assigned after tr is constructed, since tr's callbacks need to
	// close over it, but neither callback can fire before tr.Run starts
	// negotiating, and tr.Run is only started below, after cl is set.
	var cl *client.Client
	tr, err := transport.NewTransport(cfg.Address, cfg.DisplayName,
		func(authorID, seqno int, text string) { cl.OnConnect(authorID, seqno, text) },
		func(msg protocol.ServerMsg) { cl.HandleServerMsg(msg) },
	)
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}
	cl = client.New(editor, 0, tr)

	if err := cl.Start(); err != nil {
		return fmt.Errorf("attach to editor: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tr.Run(gctx)
		return nil
	})
	g.Go(func() error {
		err := editor.Run(gctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	err = g.Wait()
	tr.Close()
	logger.Info("agent: shutting down")
	return err
}
