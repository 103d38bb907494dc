// Package meshd wires together configuration, logging, metrics, and the
// MLE core into a single runnable program and adapts it to
// [github.com/kardianos/service] so the binary can install itself as a
// platform service.
package meshd

import (
	"context"
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nodecore/mle/internal/meshaddr"
	"github.com/nodecore/mle/internal/meshconfig"
	"github.com/nodecore/mle/internal/meshmetrics"
	"github.com/nodecore/mle/internal/mle"
	"github.com/nodecore/mle/internal/transport"
)

// roleNames lists every [mle.Role] string for the one-hot metrics gauge.
var roleNames = []string{
	mle.RoleDisabled.String(), mle.RoleDetached.String(),
	mle.RoleChild.String(), mle.RoleRouter.String(), mle.RoleLeader.String(),
}

// Program adapts a running [mle.Core] to [service.Interface].
type Program struct {
	core       *mle.Core
	cfg        *meshconfig.Config
	configPath string
	watcher    *meshconfig.Watcher
	registry   *prometheus.Registry

	cancel context.CancelFunc
}

// New loads configuration from configPath, builds the logger, metrics
// registry, transport, and [mle.Core], and returns a ready-to-run Program.
func New(configPath string) (*Program, error) {
	cfg, err := meshconfig.Load(configPath)
	if err != nil {
		return nil, errors.Annotate(err, "meshd: loading config: %w")
	}

	logger := newLogger(cfg.Log)

	masterKey, err := cfg.MasterKey()
	if err != nil {
		return nil, errors.Annotate(err, "meshd: %w")
	}

	iface, err := net.InterfaceByName(cfg.Interface)
	if err != nil {
		return nil, errors.Annotate(err, "meshd: resolving interface %q: %w", cfg.Interface)
	}

	var extAddr meshaddr.ExtendedAddress
	if _, err = rand.Read(extAddr[:]); err != nil {
		return nil, errors.Annotate(err, "meshd: generating extended address: %w")
	}
	extAddr[0] |= 0x02 // mark as a locally administered EUI-64.

	radio := transport.NewNullRadio(extAddr)
	udp := transport.NewDefaultUDP(logger.With(slogutil.KeyPrefix, "transport"), iface)

	params := mle.Params{
		MasterKey:              masterKey,
		NetworkName:            cfg.NetworkName,
		PanID:                  cfg.PanID,
		Channel:                cfg.Channel,
		LeaderWeight:           cfg.LeaderWeight,
		NetworkIDTimeout:       time.Duration(cfg.NetworkIDTimeoutSec) * time.Second,
		RouterUpgradeThreshold: cfg.RouterUpgradeThreshold,
		ContextIDReuseDelay:    time.Duration(cfg.ContextIDReuseDelaySec) * time.Second,
	}

	core := mle.New(params, radio, udp, logger.With(slogutil.KeyPrefix, "mle"))

	registry := prometheus.NewRegistry()
	meshmetrics.Register(registry)

	watcher, err := meshconfig.NewWatcher(logger.With(slogutil.KeyPrefix, "meshconfig"), configPath)
	if err != nil {
		logger.Warn("master key hot-reload disabled", "error", err)
	}

	return &Program{
		core: core, cfg: cfg, configPath: configPath, watcher: watcher, registry: registry,
	}, nil
}

// Start implements [service.Interface].
func (p *Program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	if err := p.core.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("starting mle core: %w", err)
	}

	go p.dispatchLoop(ctx)
	if p.watcher != nil {
		go p.watcher.Run(ctx)
		go p.watchMasterKey(ctx)
	}

	return nil
}

// Stop implements [service.Interface].
func (p *Program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.watcher != nil {
		_ = p.watcher.Close()
	}
	return p.core.Stop()
}

// dispatchLoop is the single dispatch thread: every tick it drains
// datagrams the transport queued from its own goroutine, then fires armed
// timers, then reports metrics — all on this one goroutine, since
// [mle.Core] and its tables carry no internal locking and must only ever
// be touched from here. The fixed tick stands in for the interrupt-driven
// hardware alarm a real 802.15.4 radio SoC would fire: millisecond
// precision from a Go timer is more than sufficient for MLE's
// second-scale schedules.
func (p *Program) dispatchLoop(ctx context.Context) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.core.DrainInbound()
			p.core.Timers.FireTimers()
			p.reportMetrics()
		}
	}
}

func (p *Program) reportMetrics() {
	meshmetrics.SetRole(p.core.Role.String(), roleNames)
	meshmetrics.NeighborTableSize.WithLabelValues("child").Set(float64(p.core.Table.NumValidChildren()))
	meshmetrics.RouterIDsAllocated.Set(float64(p.core.Allocator.NumAllocated()))
}

// watchMasterKey re-reads the configuration file after every write and
// flags whether the master key changed. The dispatch thread owns every
// field of [mle.Core] with no internal locking, so this goroutine only
// logs the need for an operator-triggered restart rather than mutating
// crypto state itself.
func (p *Program) watchMasterKey(ctx context.Context) {
	logger := p.core.Logger

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.watcher.Events():
			cfg, err := meshconfig.Load(p.configPath)
			if err != nil {
				logger.WarnContext(ctx, "reloading config after change", "error", err)
				continue
			}

			if cfg.MasterKeyHex != p.cfg.MasterKeyHex {
				logger.WarnContext(ctx, "master key changed on disk; restart meshd to adopt it")
			}
		}
	}
}

// Registry exposes the Prometheus registry for an HTTP /metrics handler.
func (p *Program) Registry() *prometheus.Registry {
	return p.registry
}
