// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/ziflex/lecho/v2"

	"github.com/optakt/walletkit/api/bdb"
	"github.com/optakt/walletkit/api/status"
	"github.com/optakt/walletkit/codec/zbor"
	"github.com/optakt/walletkit/models/account"
	"github.com/optakt/walletkit/service/metrics"
	"github.com/optakt/walletkit/service/system"
)

const (
	success = 0
	failure = 1
)

func main() {
	os.Exit(run())
}

func run() int {

	// Signal catching for clean shutdown.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	// Command line parameter initialization.
	var flagAddresses map[string]string

	pflag.StringP("level", "l", "info", "log output level")
	pflag.StringP("data", "d", "data", "database directory for wallet state, empty for in-memory")
	pflag.StringP("api", "a", bdb.DefaultConfig.BaseURL, "base URL of the blockchain database API")
	pflag.String("token", "", "bearer token for the blockchain database API")
	pflag.StringSliceP("networks", "n", nil, "comma-separated list of network IDs to track, empty to discover all")
	pflag.Bool("mainnet", false, "track mainnet networks instead of testnets")
	pflag.Int64("birthday", 0, "unix timestamp of the account creation")
	pflag.Bool("wipe", false, "wipe persisted wallet state before starting")
	pflag.Uint16P("port", "p", 8080, "port to host the status API on")
	pflag.String("metrics", ":9090", "address to expose prometheus metrics on")
	pflag.Uint("lanes", 4, "number of event dispatch lanes")
	pflag.Uint64("window", 1000, "number of blocks per sync window")
	pflag.Duration("poll", 10*time.Second, "interval between polls for new blocks")
	pflag.StringToStringVar(&flagAddresses, "addresses", nil, "watched address per network, as network=address")

	pflag.Parse()

	// Configuration values can also be provided through the environment,
	// where they take precedence over defaults but not over flags.
	viper.SetEnvPrefix("walletkit")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("token", "WALLETKIT_TOKEN", "BDB_CLIENT_TOKEN")
	_ = viper.BindEnv("phrase", "WALLETKIT_PHRASE")
	_ = viper.BindPFlags(pflag.CommandLine)

	// Logger initialization.
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	log := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	level, err := zerolog.ParseLevel(viper.GetString("level"))
	if err != nil {
		log.Error().Str("level", viper.GetString("level")).Err(err).Msg("could not parse log level")
		return failure
	}
	log = log.Level(level)
	elog := lecho.From(log)

	// Account initialization. The phrase is only read from the environment
	// so it never shows up in the process list.
	phrase := viper.GetString("phrase")
	if phrase == "" {
		log.Error().Msg("missing paper key phrase, set WALLETKIT_PHRASE")
		return failure
	}
	birthday := time.Unix(viper.GetInt64("birthday"), 0).UTC()
	acc, err := account.FromPhrase(phrase, "walletkit-sync", birthday)
	if err != nil {
		log.Error().Err(err).Msg("could not derive account from phrase")
		return failure
	}
	crypto := account.NewWatchOnly(flagAddresses)

	// Metrics initialization.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	err = metrics.RegisterBadgerMetrics(reg)
	if err != nil {
		log.Error().Err(err).Msg("could not register badger metrics")
		return failure
	}

	// Blockchain database client initialization.
	client, err := bdb.New(log,
		bdb.WithBaseURL(viper.GetString("api")),
		bdb.WithToken(viper.GetString("token")),
		bdb.WithPollInterval(viper.GetDuration("poll")),
		bdb.WithRecorder(metrics.NewRequests(reg)),
	)
	if err != nil {
		log.Error().Str("api", viper.GetString("api")).Err(err).Msg("could not create blockchain database client")
		return failure
	}
	defer client.Close()

	// Wallet system initialization.
	data := viper.GetString("data")
	if viper.GetBool("wipe") && data != "" {
		err = system.Wipe(data)
		if err != nil {
			log.Error().Str("data", data).Err(err).Msg("could not wipe wallet state")
			return failure
		}
	}
	listener := metrics.NewListener(&pilot{log: log}, reg)
	sys, err := system.New(log, acc, crypto, listener, viper.GetBool("mainnet"), data, metrics.NewClient(client, reg),
		system.WithLanes(viper.GetUint("lanes")),
		system.WithSyncWindow(viper.GetUint64("window")),
		system.WithCodec(metrics.NewCodec(zbor.NewCodec(), reg)),
	)
	if err != nil {
		log.Error().Str("data", data).Err(err).Msg("could not create wallet system")
		return failure
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	err = sys.Configure(ctx, viper.GetStringSlice("networks"))
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("could not configure networks")
		_ = sys.Close(context.Background())
		return failure
	}

	// Status API initialization.
	server := echo.New()
	server.HideBanner = true
	server.HidePort = true
	server.Logger = elog
	server.Use(lecho.Middleware(lecho.Config{Logger: elog}))
	status.NewController(sys).Register(server)

	msvr := metrics.NewServer(log, viper.GetString("metrics"), reg)

	// This section launches the main executing components in their own
	// goroutine, so they can run concurrently. Afterwards, we wait for an
	// interrupt signal in order to proceed with the next section.
	done := make(chan struct{})
	failed := make(chan struct{})
	go func() {
		log.Info().Msg("Walletkit Sync starting")
		err := server.Start(fmt.Sprint(":", viper.GetUint("port")))
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("Walletkit Sync failed")
			close(failed)
		} else {
			close(done)
		}
		log.Info().Msg("Walletkit Sync stopped")
	}()
	go func() {
		err := msvr.Start()
		if err != nil {
			log.Warn().Err(err).Msg("metrics server failed")
		}
	}()

	select {
	case <-sig:
		log.Info().Msg("Walletkit Sync stopping")
	case <-done:
		log.Info().Msg("Walletkit Sync done")
	case <-failed:
		log.Warn().Msg("Walletkit Sync aborted")
		_ = sys.Close(context.Background())
		return failure
	}
	go func() {
		<-sig
		log.Warn().Msg("forcing exit")
		os.Exit(1)
	}()

	// The following code starts a shut down with a certain timeout and makes
	// sure that the main executing components are shutting down within the
	// allocated shutdown time. Otherwise, we will force the shutdown and log
	// an error. We then wait for shutdown on each component to complete.
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = server.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not shut down status API")
		return failure
	}
	err = msvr.Stop(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not shut down metrics server")
		return failure
	}
	err = sys.Close(ctx)
	if err != nil {
		log.Error().Err(err).Msg("could not close wallet system")
		return failure
	}

	return success
}
