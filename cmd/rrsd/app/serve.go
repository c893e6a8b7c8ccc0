/*
 * MIT License
 *
 * (C) Copyright 2025 Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Cray-HPE/cray-rrs-sub000/internal/config"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/k8s"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/logger"
	rrsapi "github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/api"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/cluster"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/docstore"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/evaluator"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/hsm"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/initproc"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/lock"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/mainloop"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/monitor"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/notify"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/statemgr"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/storage"
	"github.com/Cray-HPE/cray-rrs-sub000/pkg/rrs/types"
)

// defaultGracefulTimeout bounds how long rrsd waits for the read API to
// unwind on shutdown; an in-flight monitoring session is not waited for.
const defaultGracefulTimeout = 30 * time.Second

// notificationEventBuffer is the Notification Intake's events channel
// capacity; Intake drops rather than blocks a request when it's full.
const notificationEventBuffer = 32

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Rack Resiliency Service daemon",
	Long: `Run the Rack Resiliency Service daemon: the main control loop, the
monitor coordinator, the hardware notification intake, and the read API,
all wired against the in-cluster Kubernetes API and the hardware state
manager.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("address", "", "Read API listen port, overriding read_api_port")
	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("failed to bind address flag: %v", err)
	}
}

// selfSubscriber adapts hsm.Client's EnsureSubscribed, which needs this
// process's own callback URL, to mainloop.SubscriptionEnsurer, which does
// not carry configuration.
type selfSubscriber struct {
	hsm     *hsm.Client
	selfURL string
}

func (s selfSubscriber) EnsureSubscribed(ctx context.Context) error {
	return s.hsm.EnsureSubscribed(ctx, s.selfURL)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if address := viper.GetString("address"); address != "" {
		cfg.ReadAPIPort = address
	}

	clientset, err := k8s.NewClient()
	if err != nil {
		return fmt.Errorf("create kubernetes client: %w", err)
	}

	store := docstore.New(clientset, cfg.Namespace)
	staticLock := lock.New(store, docstore.StaticConfigMapName)
	dynamicLock := lock.New(store, docstore.DynamicConfigMapName)
	clusterAdapter := cluster.New(clientset)
	docs := docstore.NewDocuments(store, staticLock, dynamicLock, clusterAdapter)
	storageTool := storage.NewTool(cfg.StorageToolPath)
	hsmClient := hsm.New(cfg.HSMBaseURL)
	state := statemgr.New()

	selfNode := os.Getenv("NODE_NAME")

	initializer := initproc.New(docs, docs, clusterAdapter, storageTool, state, hsmClient, selfNode)
	if err := initializer.Run(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	eval := evaluator.New(clusterAdapter, func(evalCtx context.Context) (map[string]string, error) {
		racks, err := clusterAdapter.ListNodeRacks(evalCtx)
		if err != nil {
			return nil, err
		}
		byNode := make(map[string]string, len(racks))
		for _, r := range racks {
			byNode[r.Name] = r.Rack
		}
		return byNode, nil
	})
	coordinator := monitor.New(clusterAdapter, storageTool, docs, state, eval)

	// A predecessor that died mid-session left a subsystem marked Started;
	// resume with one fresh session, which restarts both monitors.
	if prior := state.Dynamic(); prior != nil && (prior.State.K8sMonitoring == types.SubsystemStarted || prior.State.CephMonitoring == types.SubsystemStarted) {
		timers, err := docs.ReadTimers(ctx)
		if err != nil {
			logger.Warnw("rrsd: failed to read timers for resumed monitoring session, using defaults", "error", err)
			timers = types.DefaultTimers()
		}
		coordinator.TryStart(ctx, timers)
	}

	events := make(chan notify.Event, notificationEventBuffer)
	intake := notify.New(hsmClient, state, events)
	sub := selfSubscriber{hsm: hsmClient, selfURL: cfg.SelfURL()}
	loop := mainloop.New(state, eval, docs, sub, cfg.MainLoopInterval)

	go consumeNotificationEvents(ctx, events, docs, coordinator)

	go loop.Run(ctx)

	logger.Infof("rrsd serving read API on :%s", cfg.ReadAPIPort)
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- rrsapi.Serve(ctx, ":"+cfg.ReadAPIPort, rrsapi.Deps{
			Intake:  intake,
			State:   state,
			Docs:    docs,
			Cluster: clusterAdapter,
		})
	}()

	select {
	case <-ctx.Done():
		logger.Info("rrsd: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		select {
		case err := <-apiErr:
			if err != nil {
				logger.Errorw("rrsd: read API did not shut down cleanly", "error", err)
			}
		case <-shutdownCtx.Done():
			logger.Warn("rrsd: timed out waiting for read API shutdown")
		}
		return nil
	case err := <-apiErr:
		return fmt.Errorf("read API server: %w", err)
	}
}

// timerReader is the subset of docstore.Documents consumeNotificationEvents
// needs to look up the current monitoring timers for each session it starts.
type timerReader interface {
	ReadTimers(ctx context.Context) (types.Timers, error)
}

// consumeNotificationEvents drives the Monitor Coordinator from hardware
// state-change notifications: every event is a request to (re)start a
// monitoring session, subject to the coordinator's at-most-one-session and
// late-start preemption rules.
func consumeNotificationEvents(ctx context.Context, events <-chan notify.Event, docs timerReader, coordinator *monitor.Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			timers, err := docs.ReadTimers(ctx)
			if err != nil {
				logger.Warnw("rrsd: failed to read timers for monitoring session, using defaults", "error", err, "xname", ev.Xname)
				timers = types.DefaultTimers()
			}
			if !coordinator.TryStart(ctx, timers) {
				logger.Infow("rrsd: monitoring session already active, notification absorbed", "xname", ev.Xname, "kind", ev.Kind)
			}
		}
	}
}
