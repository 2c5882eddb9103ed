/*
Copyright 2025 The WARaft Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// The waraft binary brings up the front ends for every partition of one
// table and serves metrics and health endpoints until it receives a stop
// signal. Commits and reads arrive in-process through the registry; there is
// no network request surface.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	uberzap "go.uber.org/zap"

	"github.com/Laguna-Games/waraft/pkg/acceptor"
	"github.com/Laguna-Games/waraft/pkg/admission"
	"github.com/Laguna-Games/waraft/pkg/metrics"
	"github.com/Laguna-Games/waraft/pkg/registry"
	"github.com/Laguna-Games/waraft/pkg/types"
	logutil "github.com/Laguna-Games/waraft/pkg/util/logging"
)

func main() {
	var (
		serveAddr         = flag.String("serve-addr", ":9090", "Address for the metrics and health endpoints.")
		table             = flag.String("table", "kv", "Name of the replicated table to serve.")
		partitions        = flag.Int("partitions", 4, "Number of partitions to bring up for the table.")
		maxPendingCommits = flag.Int("max-pending-commits", 0, "Per-shard commit admission limit (0 for default).")
		maxPendingApplies = flag.Int("max-pending-applies", 0, "Per-shard shared apply limit (0 for default).")
		maxPendingReads   = flag.Int("max-pending-reads", 0, "Per-shard read reservation limit (0 for default).")
		submitTimeout     = flag.Duration("submit-timeout", 0, "Timeout for blocking commit/read submissions (0 for default).")
	)
	flag.Parse()

	zl, err := uberzap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger := zapr.NewLogger(zl)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics.Register()

	reg, err := registry.New(ctx, admission.Config{
		MaxPendingCommits: *maxPendingCommits,
		MaxPendingApplies: *maxPendingApplies,
		MaxPendingReads:   *maxPendingReads,
	}, logger)
	if err != nil {
		logutil.Fatal(logger, err, "Failed to create the shard registry")
	}
	for p := range *partitions {
		shard := types.ShardKey{Table: *table, Partition: uint32(p)}
		if _, err := reg.Register(registry.ShardConfig{
			Shard:    shard,
			Acceptor: acceptor.Config{SubmitTimeout: *submitTimeout},
		}); err != nil {
			logutil.Fatal(logger, err, "Failed to register shard", "shard", shard.String())
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !reg.Healthy() {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: *serveAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics and health endpoints.",
		"addr", *serveAddr, "table", *table, "partitions", *partitions)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logutil.Fatal(logger, err, "Serve loop failed")
	}

	reg.Stop()
	logger.Info("Shutdown complete.")
}
