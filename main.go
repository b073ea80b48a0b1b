package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/leeineian/mp3bot/home"
	"github.com/leeineian/mp3bot/sys"
)

const pidFile = ".bot.pid"

func main() {
	// 0. Recover from panics (LogFatal uses panic to ensure defers run)
	defer func() {
		if r := recover(); r != nil {
			if msg, ok := r.(string); ok {
				fmt.Fprintf(os.Stderr, "\n[FATAL] %s\n", msg)
				os.Exit(1)
			}
			panic(r)
		}
	}()

	silent := flag.Bool("silent", false, "Disable all log output")
	skipReg := flag.Bool("skip-reg", false, "Skip command registration")
	logFile := flag.Bool("log-file", false, "Also write logs to <binary>.log")
	flag.Parse()

	// 1. Initialize Logger (handle flags)
	sys.InitLogger(*silent, *logFile)

	// 2. Load configuration
	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal(sys.MsgConfigFailedToLoad, err)
	}
	if *silent {
		cfg.Silent = true
	}

	// 3. Initialize Database
	if err := sys.InitDatabase(context.Background(), cfg.DatabasePath); err != nil {
		sys.LogFatal("Failed to initialize database: %v", err)
	}
	defer sys.CloseDatabase()

	// 4. Single instance
	unlock, err := lockPIDFile(pidFile)
	if err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
	defer unlock()

	sys.LogInfo(sys.MsgBotStarting, sys.GetProjectName())

	// 5. Run bot (blocks until shutdown signal)
	if err := run(cfg, *skipReg); err != nil {
		sys.LogFatal(sys.MsgGenericError, err)
	}
}

func run(cfg *sys.Config, skipReg bool) error {
	// 1. Setup global context that responds to shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	sys.SetAppContext(ctx)

	// 2. Create disgo client
	client, err := sys.CreateClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create Discord client: %w", err)
	}

	// 3. Command Registration
	if !skipReg {
		if err := sys.RegisterCommands(client, cfg.GuildID, false); err != nil {
			sys.LogError(sys.MsgBotRegisterFail, err)
		}
	} else {
		sys.LogInfo("Skipping command registration as requested.")
	}

	// 4. Connect to Gateway
	if err := client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	if !cfg.Silent {
		fmt.Println()
	}

	// Graceful Shutdown: sessions leave voice before the gateway closes.
	sys.LogInfo("Shutting down all daemons...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	sys.ShutdownDaemons(shutdownCtx)

	if botUser, ok := client.Caches.SelfUser(); ok {
		sys.LogInfo(sys.MsgBotShutdown, botUser.Username)
	} else {
		sys.LogInfo(sys.MsgBotShutdown, sys.GetProjectName())
	}
	client.Close(shutdownCtx)
	return nil
}

// lockPIDFile takes an exclusive lock on path and writes our PID into it.
func lockPIDFile(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		var oldPid int
		_, _ = fmt.Fscanf(f, "%d", &oldPid)
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("another instance is already running (PID %d)", oldPid)
		}
		return nil, fmt.Errorf("failed to lock PID file: %w", err)
	}

	_ = f.Truncate(0)
	_, _ = f.Seek(0, 0)
	_, _ = fmt.Fprintf(f, "%d", os.Getpid())
	_ = f.Sync()

	return func() {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		_ = os.Remove(path)
	}, nil
}
