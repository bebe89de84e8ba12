package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/domain"
)

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	DefaultProjectName string
}

// Service runs whole-state operations outside the interactive session:
// startup load, export and import.
type Service struct {
	store          Store
	legacy         LegacySource
	legacyProjects LegacySource
	clock          Clock
	cfg            ServiceConfig
	logger         *log.Logger
}

// NewService constructs a service over store. legacy may be nil.
func NewService(store Store, legacy LegacySource, clock Clock, cfg ServiceConfig) *Service {
	if clock == nil {
		clock = time.Now
	}
	if cfg.DefaultProjectName == "" {
		cfg.DefaultProjectName = DefaultProjectName
	}
	return &Service{
		store:  store,
		legacy: legacy,
		clock:  clock,
		cfg:    cfg,
		logger: log.Default(),
	}
}

// SetLogger replaces the logger used for load and import events.
func (s *Service) SetLogger(logger *log.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetLegacyProjects sets the multi-project legacy file tried before the legacy board.
func (s *Service) SetLegacyProjects(src LegacySource) {
	s.legacyProjects = src
}

// Load returns the startup state, migrating legacy files when needed.
func (s *Service) Load(ctx context.Context) (domain.State, LoadReport) {
	return LoadState(ctx, s.store, s.legacy, LoadOptions{
		DefaultProjectName: s.cfg.DefaultProjectName,
		LegacyProjects:     s.legacyProjects,
		Logger:             s.logger,
	})
}

// NewSession loads the startup state and wraps it in an interactive session.
func (s *Service) NewSession(ctx context.Context, opts ...SessionOption) (*Session, LoadReport) {
	st, report := s.Load(ctx)
	opts = append([]SessionOption{WithLogger(s.logger)}, opts...)
	session := NewSession(st, s.store, opts...)
	if report.Warning != "" {
		session.SetNotice(report.Warning)
	}
	return session, report
}

// ExportSnapshot handles export snapshot.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, LoadReport) {
	st, report := s.Load(ctx)
	return NewSnapshot(st, s.clock()), report
}

// ImportSnapshot validates snap and replaces the stored state with it.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	st, err := snap.State()
	if err != nil {
		return err
	}
	if err := s.store.Save(ctx, st); err != nil {
		return fmt.Errorf("import snapshot: %w", err)
	}
	s.logger.Info("snapshot imported", "projects", len(st.Projects), "tasks", st.TaskCount())
	return nil
}
