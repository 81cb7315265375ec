package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/llguy/voxsync/pkg/client"
	"github.com/llguy/voxsync/pkg/config"
	"github.com/llguy/voxsync/pkg/transport"

	"github.com/rs/zerolog/log"
)

func botCommand(configs []string) error {
	settings, err := config.Process(configs)
	if err != nil {
		return err
	}
	clientConfig := settings.Client

	if CLI.Bot.Server != "" {
		clientConfig.Server = CLI.Bot.Server
	}
	if CLI.Bot.Name != "" {
		clientConfig.Name = CLI.Bot.Name
	}

	seed := CLI.Bot.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	serverAddr, err := net.ResolveUDPAddr("udp", clientConfig.Server)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", clientConfig.Server, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	socket, err := transport.Listen(context.Background(), ":0")
	if err != nil {
		return err
	}
	defer socket.Close()

	bot := client.New(context.Background(), client.NewConfig(clientConfig), serverAddr, socket)

	log.Info().
		Str("server", serverAddr.String()).
		Str("name", clientConfig.Name).
		Int64("seed", seed).
		Msg("connecting")

	err = bot.Run(ctx, client.NewBot(seed))
	log.Info().
		Int("corrections", bot.Corrections).
		Msg("bot stopped")
	return err
}
