package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koding/multiconfig"
	"github.com/nergy-se/hvacsim/pkg/api/v1/config"
	"github.com/nergy-se/hvacsim/pkg/app"
	"github.com/nergy-se/hvacsim/pkg/version"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()
	err := Run(ctx)
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	cliConfig := &config.CliConfig{}
	err := multiconfig.New().Load(cliConfig)
	if err != nil {
		return err
	}
	lvl, err := logrus.ParseLevel(cliConfig.LogLevel)
	if err != nil {
		return fmt.Errorf("error setting logrus loglevel: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.Infof("hvacsim %s", version.Version)

	simConfig, err := config.LoadSimConfig(cliConfig.ConfigFile)
	if err != nil {
		return err
	}

	app := app.New(cliConfig, simConfig)

	err = app.Start(ctx)
	if err != nil {
		return err
	}

	app.Wait()
	return nil
}
