package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nibzard/tasklist-go/internal/config"
	"github.com/nibzard/tasklist-go/internal/kvstore"
	"github.com/nibzard/tasklist-go/internal/logging"
	"github.com/nibzard/tasklist-go/internal/manager"
)

// closeTimeout bounds how long a command waits for outstanding saves.
const closeTimeout = 10 * time.Second

// session is an opened store with a manager bound to it.
type session struct {
	cfg      *config.Config
	store    kvstore.Store
	mgr      *manager.Manager
	logger   *log.Logger
	runLog   *logging.RunLogger
	describe string
}

// openSession validates cfg, opens the store and builds a manager. Logs go
// to a new run log in cfg.LogDir, or to stderr when that cannot be created.
func openSession(ctx context.Context, cfg *config.Config, notifier manager.Notifier) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logOpts, err := cfg.LogOptions()
	if err != nil {
		return nil, err
	}
	runLog, err := logging.NewRunLogger(cfg.LogDir)
	var logger *log.Logger
	if err != nil {
		logger = logging.New(stderr, logOpts)
		logger.Warn("run log unavailable, logging to stderr", "dir", cfg.LogDir, "err", err)
		runLog = nil
	} else {
		logger = logging.New(runLog.Writer(), logOpts)
	}

	storeOpts, err := cfg.StoreOptions()
	if err != nil {
		runLog.Close()
		return nil, err
	}
	store, err := kvstore.Open(ctx, storeOpts)
	if err != nil {
		runLog.Close()
		return nil, fmt.Errorf("opening %s store: %w", storeOpts.Backend, err)
	}

	mgrOpts, err := cfg.ManagerOptions()
	if err != nil {
		store.Close()
		runLog.Close()
		return nil, err
	}
	mgrOpts.Notifier = notifier
	mgrOpts.Logger = logger
	mgr, err := manager.New(ctx, store, mgrOpts)
	if err != nil {
		store.Close()
		runLog.Close()
		return nil, err
	}

	describe := kvstore.Describe(storeOpts)
	logger.Info("session started", "store", describe, "key", mgr.Key(), "save_mode", mgr.Mode())

	return &session{
		cfg:      cfg,
		store:    store,
		mgr:      mgr,
		logger:   logger,
		runLog:   runLog,
		describe: describe,
	}, nil
}

func (s *session) load(ctx context.Context) error {
	return s.mgr.Load(ctx)
}

// close waits for outstanding saves, then releases the store and the run
// log. The wait is not cut short by ctx being canceled.
func (s *session) close(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()

	saveErr := s.mgr.Close(waitCtx)
	if saveErr != nil {
		s.logger.Error("saving tasks failed", "err", saveErr)
	}
	storeErr := s.store.Close()
	s.logger.Info("session finished")
	logErr := s.runLog.Close()
	return errors.Join(saveErr, storeErr, logErr)
}

// stderrNotifier prints notices for headless commands.
type stderrNotifier struct {
	mu sync.Mutex
}

func (n *stderrNotifier) Notify(notice manager.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(stderr, "%s: %s\n", notice.Level, notice.String())
}
