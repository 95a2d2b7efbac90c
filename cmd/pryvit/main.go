// Command pryvit is a camera assistant that greets recognized people,
// reacts to their hand gestures and answers voice commands.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ayusman/pryvit/internal/action"
	"github.com/ayusman/pryvit/internal/app"
	"github.com/ayusman/pryvit/internal/capture"
	"github.com/ayusman/pryvit/internal/config"
	"github.com/ayusman/pryvit/internal/detector"
	"github.com/ayusman/pryvit/internal/face"
	"github.com/ayusman/pryvit/internal/gesture"
	"github.com/ayusman/pryvit/internal/interaction"
	plog "github.com/ayusman/pryvit/internal/log"
	"github.com/ayusman/pryvit/internal/render"
	"github.com/ayusman/pryvit/internal/server"
	"github.com/ayusman/pryvit/internal/speech"
	"github.com/ayusman/pryvit/internal/store"
	"github.com/ayusman/pryvit/internal/tray"
	"github.com/ayusman/pryvit/internal/voice"
)

func main() {
	configPath := flag.String("config", config.ConfigPath(), "path to the configuration file")
	initConfig := flag.Bool("init", false, "write the default configuration if missing and exit")
	flag.Parse()

	if *initConfig {
		_, created, err := config.LoadOrCreate(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pryvit: %v\n", err)
			os.Exit(1)
		}
		if created {
			fmt.Printf("wrote %s\n", *configPath)
		} else {
			fmt.Printf("%s already exists\n", *configPath)
		}
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pryvit: %v\n", err)
		os.Exit(1)
	}
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(string) {}

func run(configPath string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	defer loader.Close()

	plog.Init(cfg.Log.Level, cfg.Log.Format)
	log := plog.With("main")
	log.Info().Str("config", loader.Path()).Stringer("settings", cfg).Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer st.Close()

	embedder, err := face.NewSidecarEmbedder(face.SidecarConfig{
		Script: cfg.Face.Script,
		Model:  cfg.Face.Model,
		Device: cfg.Face.Device,
	})
	if err != nil {
		return err
	}
	defer embedder.Close()

	recognizer, err := loadFaces(cfg, embedder, st, log)
	if err != nil {
		return err
	}

	hands, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		Script:          cfg.Detector.Script,
	})
	if err != nil {
		return err
	}

	var speaker interaction.Speaker = silentSpeaker{}
	if cfg.Speech.Enabled {
		opts := []speech.Option{speech.WithGrace(cfg.Speech.Grace.D())}
		if cfg.Speech.TempDir != "" {
			opts = append(opts, speech.WithTempDir(cfg.Speech.TempDir))
		}
		dispatcher := speech.NewDispatcher(
			speech.CommandSynthesizer{Command: cfg.Speech.Command, Voice: cfg.Speech.Voice},
			speech.CommandPlayer{Command: cfg.Speech.Player, Args: cfg.Speech.PlayerArgs},
			opts...,
		)
		speaker = dispatcher
	}

	actions := action.NewExecutor()

	vocab := interaction.DefaultVocabulary()
	coord := interaction.NewCoordinator(cfg.CoordinatorConfig(), speaker, actions,
		interaction.WithVocabulary(vocab),
		interaction.WithCatalog(interaction.NewStaticCatalog(vocab, cfg.Applications)),
	)

	loader.OnChange(func(c *config.Config) {
		coord.SetCatalog(interaction.NewStaticCatalog(vocab, c.Applications))
		log.Info().Int("applications", len(c.Applications)).Msg("configuration reloaded")
	})
	if err := loader.Watch(); err != nil {
		log.Warn().Err(err).Msg("config hot reload disabled")
	} else {
		go func() {
			for err := range loader.Errors() {
				log.Warn().Err(err).Msg("config reload rejected")
			}
		}()
	}

	if cfg.Voice.Enabled {
		source := voice.CommandSource{Argv: cfg.Voice.Command}
		if err := source.Check(); err != nil {
			log.Warn().Err(err).Msg("voice commands disabled")
		} else {
			commands := make(chan voice.Command, 8)
			listener := voice.NewListener(source, cfg.Voice.RestartDelay.D())
			go listener.Run(ctx, commands)
			go coord.Run(ctx, commands)
		}
	}

	drawer, err := render.NewTextDrawer(cfg.Display.Font)
	if err != nil {
		log.Warn().Err(err).Msg("font unavailable, using built-in font")
		drawer = render.NewHersheyDrawer()
	}

	appCfg := app.Config{
		Camera: capture.NewCamera(capture.Config{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
			Mirror: cfg.Camera.Mirror,
		}),
		Detector:    hands,
		Faces:       face.NewResolver(embedder, recognizer),
		Classifier:  gesture.NewClassifier(cfg.GestureParams()),
		Coordinator: coord,
		Overlay:     render.NewOverlay(drawer, render.DefaultOptions()),
	}
	if cfg.Display.Window {
		appCfg.Window = render.NewWindow(cfg.Display.Title)
	}

	if cfg.Server.Enabled {
		appCfg.Frames = server.NewFrameBuffer()
		srv := server.New(server.Config{
			State:    coord,
			Commands: coord,
			Users:    st.Users(),
			Frames:   appCfg.Frames,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("server stopped")
			}
		}()
	}

	var icon *tray.Tray
	if cfg.Tray.Enabled {
		icon = tray.New()
		appCfg.OnFrame = icon.Update
	}

	a, err := app.New(appCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("release devices")
		}
	}()

	if icon == nil {
		return a.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	icon.OnPause(a.SetPaused)
	icon.OnQuit(cancel)
	if cfg.Server.Enabled {
		previewURL := "http://" + cfg.Server.Addr + "/api/stream"
		icon.OnOpen(func() {
			if err := actions.OpenURL(previewURL); err != nil {
				log.Warn().Err(err).Msg("open preview")
			}
		})
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		icon.Quit()
	}()
	icon.Run()
	cancel()
	return <-errCh
}

// loadFaces enrolls the configured users and seeds a recognizer from the
// face database.
func loadFaces(cfg *config.Config, embedder face.Embedder, st *store.Store, log zerolog.Logger) (*face.Recognizer, error) {
	result, err := face.NewEnroller(embedder, st).Enroll(cfg.UserImages())
	if err != nil {
		return nil, fmt.Errorf("enroll users: %w", err)
	}
	log.Info().
		Int("added", result.Added).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("enrollment finished")

	recognizer := face.NewRecognizer(cfg.Face.Threshold)
	n, err := face.Seed(recognizer, st)
	if err != nil {
		return nil, fmt.Errorf("seed recognizer: %w", err)
	}
	if n == 0 {
		log.Warn().Msg("face database is empty, nobody will be recognized")
	}
	log.Info().Int("embeddings", n).Msg("recognizer ready")
	return recognizer, nil
}
