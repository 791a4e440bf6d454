package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"boxfeed/internal/config"
	"boxfeed/internal/effects"
	"boxfeed/internal/event"
	"boxfeed/internal/eventbus"
	"boxfeed/internal/maintenance"
	"boxfeed/internal/notify"
	"boxfeed/internal/pipeline"
	"boxfeed/internal/runtime/supervisor"
	"boxfeed/internal/source"
	"boxfeed/internal/storage"
	"boxfeed/internal/store"
	"boxfeed/internal/toast"
	logx "boxfeed/pkg/logx"
)

// App wires the whole daemon: config, logging, the event source, the
// pipeline and its sinks, and optional persistence/maintenance.
type App struct {
	cfgPath string

	cfgm *config.Manager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	backend storage.Store
	store   *store.Store
	queue   *toast.Queue
	disp    *effects.Dispatcher
	pipe    *pipeline.Service
	maint   *maintenance.Service

	src event.Source
	ws  *source.Websocket // non-nil when source.driver is "websocket"
	mem *source.Memory    // non-nil when source.driver is "memory"

	settingsMu sync.RWMutex
	settings   notify.Settings

	sound effects.SoundPlayer
	badge effects.BadgeUpdater
	nav   effects.Navigator
}

type Option func(*App)

// WithSinks overrides the side-effect sinks. Nil entries keep the built-in
// logging sinks. Hosts embedding the pipeline use this to route sounds,
// badge counts and taps into their own UI layer.
func WithSinks(sound effects.SoundPlayer, badge effects.BadgeUpdater, nav effects.Navigator) Option {
	return func(a *App) {
		if sound != nil {
			a.sound = sound
		}
		if badge != nil {
			a.badge = badge
		}
		if nav != nil {
			a.nav = nav
		}
	}
}

func NewApp(cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	a := &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		settings: settingsFromConfig(cfg.Settings),
	}
	effectsLog := log.With(logx.String("comp", "effects"))
	a.sound = logSound{log: effectsLog}
	a.badge = logBadge{log: effectsLog}
	a.nav = logNav{log: effectsLog}
	for _, o := range opts {
		o(a)
	}

	// Storage (optional)
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		a.backend = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	// Event source
	switch strings.ToLower(strings.TrimSpace(cfg.Source.Driver)) {
	case "", "memory":
		a.mem = source.NewMemory()
		a.src = a.mem
	case "websocket", "ws":
		dial, err := config.ParseDurationOrDefault("source.dial_timeout", cfg.Source.DialTimeout, 10*time.Second)
		if err != nil {
			return nil, err
		}
		a.ws = source.NewWebsocket(source.WebsocketConfig{
			URL:         cfg.Source.URL,
			DialTimeout: dial,
		}, log.With(logx.String("comp", "source")))
		a.src = a.ws
	default:
		return nil, fmt.Errorf("source.driver: unknown driver %q", cfg.Source.Driver)
	}

	popts, err := mapPipelineOptions(cfg)
	if err != nil {
		return nil, err
	}

	a.store = store.New(a.backend, log.With(logx.String("comp", "store")))
	a.queue = toast.NewQueue()
	a.disp = effects.NewDispatcher(effects.Config{
		EnableSounds:    cfg.Pipeline.EnableSounds,
		EnableBadges:    cfg.Pipeline.EnableBadgeUpdates,
		SoundRatePerSec: cfg.Pipeline.SoundRatePerSec,
	}, a.sound, a.badge, a.nav, effectsLog)

	a.pipe = pipeline.New(popts, a.src, pipeline.SettingsFunc(a.currentSettings),
		a.store, a.queue, a.disp, a.backend, bus, log.With(logx.String("comp", "pipeline")))

	if cfg.Maintenance != nil && strings.TrimSpace(cfg.Maintenance.PruneSpec) != "" {
		a.maint = maintenance.New(maintenance.Config{
			PruneSpec: cfg.Maintenance.PruneSpec,
		}, a.pipe, a.backend, log.With(logx.String("comp", "maintenance")))
	}

	return a, nil
}

// Pipeline exposes the host-facing pipeline surface (toasts, reads, stats).
func (a *App) Pipeline() *pipeline.Service { return a.pipe }

// Source returns the in-process source when source.driver is "memory",
// nil otherwise.
func (a *App) Source() *source.Memory { return a.mem }

func (a *App) currentSettings() notify.Settings {
	a.settingsMu.RLock()
	defer a.settingsMu.RUnlock()
	return a.settings
}

func (a *App) setSettings(s notify.Settings) {
	a.settingsMu.Lock()
	a.settings = s
	a.settingsMu.Unlock()
}

// Done is closed when the run context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	// Replay persisted state before the first evaluation so restored ids
	// keep their processed marks.
	if a.backend != nil {
		restoreCtx, cancel := context.WithTimeout(a.sup.Context(), 10*time.Second)
		err := a.pipe.Restore(restoreCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		a.log.Info("state restored",
			logx.Int("notifications", len(a.pipe.Notifications())),
			logx.Int("unread", a.pipe.Unread()))
	}

	// Every source change triggers a full re-evaluation. Evaluations are
	// serialized inside the pipeline, so overlapping callbacks just queue.
	runCtx := a.sup.Context()
	reeval := func() { a.pipe.Evaluate(runCtx) }
	if a.ws != nil {
		a.ws.OnChange(reeval)
	} else {
		a.mem.OnChange(reeval)
	}
	a.pipe.Evaluate(runCtx)

	if a.ws != nil {
		a.sup.Go("source.websocket", func(c context.Context) error {
			return a.ws.Run(c)
		})
	}

	if a.maint != nil {
		if err := a.maint.Start(a.sup.Context()); err != nil {
			return err
		}
	}

	// Optional: log pipeline signals for observability/debug.
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("signal", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})

	// hot reload config fan-out
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Debug("config change summary", fields...)
				} else {
					a.log.Debug("config reload received, but no effective changes detected")
				}
				lastApplied = newCfg

				for _, s := range sections {
					switch s {
					case "storage", "source", "pipeline", "maintenance":
						a.log.Warn("config section changed; restart required for changes to take effect",
							logx.String("section", s))
					}
				}

				// apply logging updates
				a.logs.Apply(logx.Config{
					Level:   newCfg.Logging.Level,
					Console: newCfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: newCfg.Logging.File.Enabled,
						Path:    newCfg.Logging.File.Path,
					},
				})

				// Settings hot-apply: gating changes take effect on the next
				// evaluation, so force one now against the full snapshot.
				a.setSettings(settingsFromConfig(newCfg.Settings))
				a.pipe.Evaluate(c)

				if len(sections) > 0 {
					fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
					a.log.Info("config reloaded", fields...)
				} else {
					a.log.Info("config reloaded (no changes)")
				}
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	a.log.Info("app started", logx.String("source", a.srcName()))
	return nil
}

func (a *App) srcName() string {
	if a.ws != nil {
		return "websocket"
	}
	return "memory"
}

func (a *App) Stop(ctx context.Context) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")
	a.sup.Cancel()

	if a.maint != nil {
		a.maint.Stop()
	}

	err := a.sup.Wait(ctx)

	if a.backend != nil {
		compactCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if cerr := a.backend.Compact(compactCtx); cerr != nil {
			a.log.Warn("final compact failed", logx.Err(cerr))
		}
		cancel()
		if cerr := a.backend.Close(); cerr != nil {
			a.log.Warn("storage close failed", logx.Err(cerr))
		}
	}

	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}
