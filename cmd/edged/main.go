package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	flag "github.com/spf13/pflag"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/edged/internal/arbiter"
	"github.com/coreman2200/edged/internal/config"
	"github.com/coreman2200/edged/internal/led"
	"github.com/coreman2200/edged/internal/logging"
	"github.com/coreman2200/edged/internal/protocol"
	"github.com/coreman2200/edged/internal/server"
	"github.com/coreman2200/edged/internal/ws"
)

func main() {
	var (
		configPath  = flag.StringP("config", "c", "edged.yaml", "path to the YAML config")
		listen      = flag.String("listen", "", "TCP listen address for the line protocol")
		httpAddr    = flag.String("http", "", "HTTP address for preview and diagnostics (empty disables)")
		channels    = flag.IntP("channels", "n", 0, "number of lights")
		driver      = flag.String("driver", "", "driver: spi | console | sim")
		brightness  = flag.Int("brightness", -1, "global brightness 0..255")
		logLevel    = flag.String("log-level", "", "log level")
		writeConfig = flag.Bool("write-config", false, "write the effective config to --config and exit")
	)
	flag.Parse()

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			boot.Fatal().Err(err).Str("path", *configPath).Msg("config load failed")
		}
		boot.Debug().Str("path", *configPath).Msg("no config file, using defaults")
		cfg = config.Default()
	}

	// Flags the user set win over the file.
	if flag.CommandLine.Changed("listen") {
		cfg.Listen = *listen
	}
	if flag.CommandLine.Changed("http") {
		cfg.HTTPAddr = *httpAddr
	}
	if flag.CommandLine.Changed("channels") {
		cfg.Channels = *channels
	}
	if flag.CommandLine.Changed("driver") {
		cfg.Driver = *driver
	}
	if flag.CommandLine.Changed("brightness") {
		cfg.Brightness = *brightness
	}
	if flag.CommandLine.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		boot.Fatal().Err(err).Msg("invalid config")
	}
	if *writeConfig {
		if err := config.Save(*configPath, cfg); err != nil {
			boot.Fatal().Err(err).Msg("write config")
		}
		boot.Info().Str("path", *configPath).Msg("config written")
		return
	}

	log, logCloser, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		boot.Fatal().Err(err).Msg("logger")
	}
	defer logCloser.Close()

	var hub *ws.Hub
	var drv led.Driver = openDriver(cfg, log)
	if cfg.HTTPAddr != "" {
		hub = ws.NewHub(log.With().Str("component", "http").Logger())
		drv = led.Fanout{drv, hub}
	}

	strip, err := led.NewStrip(cfg.Channels, drv)
	if err != nil {
		log.Fatal().Err(err).Msg("initial display reset failed")
	}

	opts := []arbiter.Option{arbiter.WithLogger(log.With().Str("component", "arbiter").Logger())}
	if hub != nil {
		opts = append(opts, arbiter.WithObserver(hub.Notify))
	}
	arb := arbiter.New(strip, opts...)
	router := protocol.NewRouter(arb, log.With().Str("component", "router").Logger())
	if hub != nil {
		hub.Bind(arb, router)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg conc.WaitGroup
	wg.Go(func() {
		srv := server.New(router, log.With().Str("component", "tcp").Logger())
		if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
			log.Error().Err(err).Str("addr", cfg.Listen).Msg("tcp server failed")
			stop()
		}
	})
	if hub != nil {
		wg.Go(func() {
			if err := hub.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
				log.Error().Err(err).Str("addr", cfg.HTTPAddr).Msg("http server failed")
				stop()
			}
		})
	}
	log.Info().
		Str("listen", cfg.Listen).
		Str("http", cfg.HTTPAddr).
		Str("driver", cfg.Driver).
		Int("channels", cfg.Channels).
		Msg("edged running")

	<-ctx.Done()
	log.Info().Msg("shutting down")
	if r := wg.WaitAndRecover(); r != nil {
		log.Error().Str("panic", r.String()).Msg("server goroutine panicked")
	}
	arb.Close()
	if err := strip.Close(); err != nil {
		log.Warn().Err(err).Msg("driver close")
	}
}

func openDriver(cfg *config.Config, log zerolog.Logger) led.Driver {
	switch cfg.Driver {
	case "spi":
		freq := physic.Frequency(cfg.SPI.FreqKHz) * physic.KiloHertz
		drv, err := led.OpenNRZ(cfg.SPI.Dev, cfg.Channels, freq, uint8(cfg.Brightness))
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "spi").
				Str("dev", cfg.SPI.Dev).
				Int("freq_khz", cfg.SPI.FreqKHz).
				Msg("SPI init failed; falling back to SIM")
			return led.NewSim()
		}
		return drv
	case "console":
		return led.OpenConsole(cfg.Channels, uint8(cfg.Brightness))
	default:
		return led.NewSim()
	}
}
