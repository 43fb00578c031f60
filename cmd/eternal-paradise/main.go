package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/WithoutFrost/Eternal-Paradise-Project/api"
	"github.com/WithoutFrost/Eternal-Paradise-Project/assets"
	"github.com/WithoutFrost/Eternal-Paradise-Project/auth"
	"github.com/WithoutFrost/Eternal-Paradise-Project/config"
	"github.com/WithoutFrost/Eternal-Paradise-Project/globals"
	"github.com/WithoutFrost/Eternal-Paradise-Project/persistence"
	"github.com/WithoutFrost/Eternal-Paradise-Project/repository"
	"github.com/WithoutFrost/Eternal-Paradise-Project/schedule"
	"github.com/WithoutFrost/Eternal-Paradise-Project/ws"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "", "http service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key (optional)")
)

func main() {
	log.SetFlags(0)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	store, err := persistence.NewStore(globalConfig)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	opts := make([]repository.Option, 0)
	if store.Remote() {
		uploader, err := assets.NewGCSUploader(context.Background(), globalConfig.Remote)
		if err != nil {
			globals.AppLogger.Warn("object storage unavailable, embedding uploads", "error", err)
		} else {
			defer uploader.Close()
			opts = append(opts, repository.WithUploader(uploader))
		}
	}
	repo := repository.New(store, opts...)

	var authenticator api.Authenticator
	if len(globalConfig.OIDCConfigs) > 0 {
		a, err := auth.NewAuthenticator(globalConfig.OIDCConfigs)
		if err != nil {
			panic(err)
		}
		authenticator = a
	}

	announcer, err := schedule.NewAnnouncer(repo, globalConfig.Announcements)
	if err != nil {
		panic(err)
	}
	announcer.Start()
	defer announcer.Stop()

	router := api.NewServer(repo, authenticator).Router()
	router.Handle("/ws", ws.Handler(repo, authenticator)).Methods(http.MethodGet)

	listenAddr := globalConfig.Server.Addr
	if *addr != "" {
		listenAddr = *addr
	}
	certFile, keyFile := globalConfig.Server.SSLCert, globalConfig.Server.SSLKey
	if *sslCert != "" && *sslKey != "" {
		certFile, keyFile = *sslCert, *sslKey
	}
	server := &http.Server{Addr: listenAddr, Handler: router}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		globals.AppLogger.Info("interrupted, shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			globals.AppLogger.Error("could not shut down cleanly", "error", err)
		}
	}()

	globals.AppLogger.Info("listening", "addr", listenAddr, "remote", repo.Remote())
	if certFile != "" && keyFile != "" {
		err = server.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		globals.AppLogger.Error("stopped listening", "error", err)
	}
}
