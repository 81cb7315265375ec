package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/llguy/voxsync/pkg/config"
	"github.com/llguy/voxsync/pkg/server"
	"github.com/llguy/voxsync/pkg/state"
	"github.com/llguy/voxsync/pkg/terrain"
	"github.com/llguy/voxsync/pkg/transport"
	"github.com/llguy/voxsync/pkg/worldio"

	"github.com/rs/zerolog/log"
)

// loadWorld restores the last checkpoint if there is one and otherwise
// generates a fresh planet.
func loadWorld(gameServer *server.Server, path string) error {
	if path != "" {
		_, err := os.Stat(path)
		if err == nil {
			tick, err := worldio.Load(path, gameServer.World)
			if err != nil {
				return fmt.Errorf("failed to restore %s: %w", path, err)
			}
			gameServer.RestoreTick(tick)
			log.Info().
				Str("path", path).
				Int("chunks", gameServer.World.Len()).
				Uint64("tick", tick).
				Msg("restored world")
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	gameServer.GenerateWorld()
	return nil
}

func serveCommand(configs []string) error {
	settings, err := config.Process(configs)
	if err != nil {
		return err
	}
	serverConfig := settings.Server

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Outlives ctx so that shutdown events still reach their sinks.
	sinkCtx, stopSinks := context.WithCancel(context.Background())
	var sinks sync.WaitGroup
	defer func() {
		stopSinks()
		sinks.Wait()
	}()

	socket, err := transport.Listen(sinkCtx, fmt.Sprintf(":%d", serverConfig.Port))
	if err != nil {
		return err
	}
	defer socket.Close()

	gameServer := server.New(sinkCtx, server.NewConfig(serverConfig), terrain.NewTrackedWorld(), socket)

	checkpointPath := serverConfig.Checkpoint.Path
	err = loadWorld(gameServer, checkpointPath)
	if err != nil {
		return err
	}

	if checkpointPath != "" {
		checkpoints := gameServer.Checkpoints.Subscribe()
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			worldio.Persist(sinkCtx, checkpointPath, checkpoints)
		}()
	}

	if serverConfig.Database != "" {
		db, err := state.InitDB(serverConfig.Database)
		if err != nil {
			return fmt.Errorf("failed to open session database: %w", err)
		}

		recorder := state.NewRecorder(db)
		closed, err := recorder.CloseDangling(ctx, time.Now())
		if err != nil {
			return err
		}
		if closed > 0 {
			log.Warn().Int64("sessions", closed).Msg("closed sessions left open by a previous run")
		}

		events := gameServer.Events.Subscribe()
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			recorder.Poll(sinkCtx, events)
		}()
	}

	if serverConfig.Redis.Address != "" {
		presence := state.NewPresence(serverConfig.Redis)
		err = presence.Ping(ctx)
		if err != nil {
			return fmt.Errorf("failed to reach redis at %s: %w", serverConfig.Redis.Address, err)
		}

		events := gameServer.Events.Subscribe()
		sinks.Add(1)
		go func() {
			defer sinks.Done()
			defer presence.Close()
			presence.Poll(sinkCtx, events)
		}()
	}

	log.Info().
		Int("port", serverConfig.Port).
		Int("maxClients", serverConfig.MaxClients).
		Int("tickRate", serverConfig.TickRate).
		Msg("server listening")

	gameServer.Run(ctx)

	log.Info().Msg("shutting down")
	gameServer.Shutdown()

	if checkpointPath != "" {
		err = worldio.Save(checkpointPath, gameServer.World, gameServer.CurrentTick())
		if err != nil {
			log.Error().Err(err).Msg("failed to save world on shutdown")
		}
	}

	return nil
}
