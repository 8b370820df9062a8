package main

import (
	"context"
	"flag"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/vitalkeep/vitalkeep/state"
	"github.com/vitalkeep/vitalkeep/transport/rest"
)

func newServer(profiles *state.ProfileStore, backends *backends, cfg config) *fiber.App {
	profileController := rest.ProfileController{Store: profiles}
	activityController := rest.ActivityController{Store: backends.activities}

	server := fiber.New(fiber.Config{DisableStartupMessage: true})
	server.Use(rest.LogHandler())

	api := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: rest.ErrorHandler,
	})
	api.Use(cors.New(cors.Config{AllowOrigins: cfg.allowOrigins}))
	api.Get("/status", monitor.New())
	profileController.InstallTo(api)
	activityController.InstallTo(api)

	server.Mount("/api/", api)
	server.Use(rest.NotFoundHandler)
	return server
}

func setupLogger(cfg config) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if cfg.debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !cfg.syslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "vitalkeep")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	listenAddr := flag.String("listen", "", "http listen address, overrides LISTEN_ADDR")
	flag.Parse()

	cfg := configFromEnv()
	if *listenAddr != "" {
		cfg.listenAddr = *listenAddr
	}
	setupLogger(cfg)
	logrus.WithField("storage", cfg.storageBackend).Infoln("Starting vitalkeep.")

	ctx := context.Background()
	backends, err := openBackends(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open storage.")
	}
	defer backends.close()

	profiles := state.NewProfileStore(backends.storage)
	recorder := state.NewActivityRecorder(backends.activities)
	recorder.Attach(profiles)
	go profiles.Load(ctx)

	server := newServer(profiles, backends, cfg)
	go func() {
		if err := server.Listen(cfg.listenAddr); err != nil {
			logrus.WithError(err).Fatalln("Could not listen.")
		}
	}()
	logrus.WithField("addr", cfg.listenAddr).Infoln("Listening... To shut down use ^C")

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	if err := server.Shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	recorder.Close()
	profiles.Close()
}
