// Package container wires tasktree services using go.uber.org/dig.
package container

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"go.uber.org/dig"

	"github.com/dshills/tasktree/internal/api"
	"github.com/dshills/tasktree/internal/config"
	"github.com/dshills/tasktree/internal/dispatch"
	"github.com/dshills/tasktree/internal/event"
	"github.com/dshills/tasktree/internal/provider"
	"github.com/dshills/tasktree/internal/tags"
	"github.com/dshills/tasktree/internal/tags/store"
	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/sources"
)

// Container holds the resolved service singletons for one workspace.
type Container struct {
	root       string
	cfg        *config.Config
	logger     *slog.Logger
	bus        *event.Bus
	discoverer *task.Discoverer
	resolver   tags.Resolver
	provider   *provider.Provider
	dispatcher *dispatch.Dispatcher
	host       *dispatch.LocalHost

	closeOnce sync.Once
	closers   []io.Closer
}

func (c *Container) Root() string                     { return c.root }
func (c *Container) Config() *config.Config           { return c.cfg }
func (c *Container) Logger() *slog.Logger             { return c.logger }
func (c *Container) Bus() *event.Bus                  { return c.bus }
func (c *Container) Discoverer() *task.Discoverer     { return c.discoverer }
func (c *Container) Resolver() tags.Resolver          { return c.resolver }
func (c *Container) Provider() *provider.Provider     { return c.provider }
func (c *Container) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }
func (c *Container) Host() *dispatch.LocalHost        { return c.host }

// workspaceRoot is a named string type so dig can tell the root apart from
// other strings.
type workspaceRoot string

// New builds every service for the workspace at root from cfg.
func New(root string, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Container{root: abs, cfg: cfg, logger: logger}
	d := dig.New()

	provides := []any{
		func() workspaceRoot { return workspaceRoot(abs) },
		func() *config.Config { return cfg },
		func() *slog.Logger { return logger },
		newBus,
		newDiscoverer,
		c.newResolver,
		newProvider,
		newHost,
		newDispatcher,
	}
	for _, fn := range provides {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	err = d.Invoke(func(
		bus *event.Bus,
		disc *task.Discoverer,
		resolver tags.Resolver,
		p *provider.Provider,
		host *dispatch.LocalHost,
		dispatcher *dispatch.Dispatcher,
	) {
		c.bus = bus
		c.discoverer = disc
		c.resolver = resolver
		c.provider = p
		c.host = host
		c.dispatcher = dispatcher
	})
	if err != nil {
		c.Close()
		return nil, dig.RootCause(err)
	}
	return c, nil
}

// APIServer returns an HTTP API over the container's provider.
func (c *Container) APIServer() *api.Server {
	return api.NewServer(c.provider, c.logger, api.WithEvents(c.bus))
}

// Close releases the tag store and the event bus.
func (c *Container) Close() error {
	var errs []error
	c.closeOnce.Do(func() {
		for _, cl := range c.closers {
			if err := cl.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if c.bus != nil {
			c.bus.Close()
		}
	})
	return errors.Join(errs...)
}

func newBus(logger *slog.Logger) *event.Bus {
	return event.NewBus(logger)
}

func newDiscoverer(root workspaceRoot, cfg *config.Config, logger *slog.Logger) (*task.Discoverer, error) {
	srcs, err := sources.Select(cfg.LuaDirRel(string(root)), cfg.Discovery.Sources)
	if err != nil {
		return nil, err
	}
	return task.NewDiscoverer(task.WithSources(srcs...), task.WithLogger(logger)), nil
}

func (c *Container) newResolver(root workspaceRoot, cfg *config.Config, logger *slog.Logger) (tags.Resolver, error) {
	switch cfg.Tags.Dialect {
	case config.DialectStore:
		st, err := store.OpenSQLite(cfg.StorePath(string(root)))
		if err != nil {
			return nil, fmt.Errorf("open tag store: %w", err)
		}
		c.closers = append(c.closers, st)
		return tags.NewJunctionResolver(st, tags.WithLogger(logger)), nil
	default:
		return tags.NewPatternResolver(cfg.TagFilePath(string(root)), tags.WithLogger(logger)), nil
	}
}

func newProvider(root workspaceRoot, cfg *config.Config, disc *task.Discoverer, resolver tags.Resolver, bus *event.Bus, logger *slog.Logger) *provider.Provider {
	return provider.New(string(root), disc, resolver,
		provider.WithExcludes(cfg.Discovery.Exclude),
		provider.WithSortOrder(cfg.SortOrder()),
		provider.WithLogger(logger),
		provider.WithEvents(bus),
	)
}

func newHost(logger *slog.Logger) *dispatch.LocalHost {
	return dispatch.NewLocalHost(logger)
}

func newDispatcher(root workspaceRoot, host *dispatch.LocalHost) *dispatch.Dispatcher {
	return dispatch.New(host, dispatch.WithRoot(string(root)))
}
