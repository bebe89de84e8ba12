package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/tuikan/internal/domain"
)

// DefaultProjectName names the project a migrated legacy board is wrapped in.
const DefaultProjectName = "Default"

// Source reports where a loaded state came from.
type Source int

// Load sources.
const (
	SourceEmpty Source = iota
	SourceCurrent
	SourceMigrated
)

// String returns the source label used in logs.
func (s Source) String() string {
	switch s {
	case SourceCurrent:
		return "current"
	case SourceMigrated:
		return "migrated"
	default:
		return "empty"
	}
}

// LoadOptions configures LoadState. LegacyProjects, when set, is tried before
// the legacy board passed to LoadState.
type LoadOptions struct {
	DefaultProjectName string
	LegacyProjects     LegacySource
	Logger             *log.Logger
}

// LoadReport describes how LoadState obtained its result. Warning is a
// user-facing message when data was recovered or skipped; Err is the cause.
type LoadReport struct {
	Source  Source
	Warning string
	Err     error
}

// LoadState reads the current state, falling back to migrating the legacy
// projects file, then the legacy board, and then to an empty state. It never
// fails: problems are reported through the LoadReport and an empty state is
// returned.
func LoadState(ctx context.Context, store Store, legacy LegacySource, opts LoadOptions) (domain.State, LoadReport) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	st, err := store.Load(ctx)
	switch {
	case err == nil:
		logger.Info("state loaded", "source", SourceCurrent, "projects", len(st.Projects), "tasks", st.TaskCount())
		return st, LoadReport{Source: SourceCurrent}
	case errors.Is(err, ErrCorruptState):
		logger.Error("state file corrupt; starting empty", "err", err)
		return domain.NewState(), LoadReport{
			Source:  SourceEmpty,
			Warning: fmt.Sprintf("saved state was unreadable and was set aside: %v", err),
			Err:     err,
		}
	case !errors.Is(err, ErrStateNotFound):
		logger.Error("state read failed; starting empty", "err", err)
		return domain.NewState(), LoadReport{
			Source:  SourceEmpty,
			Warning: fmt.Sprintf("could not read saved state: %v", err),
			Err:     err,
		}
	}

	steps := []legacyStep{
		{
			label: "legacy projects",
			src:   opts.LegacyProjects,
			migrate: func(data []byte) (domain.State, error) {
				return DecodeLegacyProjects(data, opts.DefaultProjectName)
			},
		},
		{
			label: "legacy board",
			src:   legacy,
			migrate: func(data []byte) (domain.State, error) {
				return MigrateLegacy(data, opts.DefaultProjectName)
			},
		},
	}
	var failure LoadReport
	for _, step := range steps {
		if step.src == nil {
			continue
		}
		data, err := step.src.ReadLegacy(ctx)
		if errors.Is(err, ErrStateNotFound) {
			continue
		}
		if err != nil {
			logger.Error("legacy read failed", "source", step.label, "err", err)
			if failure.Err == nil {
				failure = LoadReport{Warning: fmt.Sprintf("could not read %s: %v", step.label, err), Err: err}
			}
			continue
		}
		migrated, err := step.migrate(data)
		if err != nil {
			logger.Error("legacy data corrupt", "source", step.label, "err", err)
			if failure.Err == nil {
				failure = LoadReport{Warning: fmt.Sprintf("%s could not be migrated and was left untouched: %v", step.label, err), Err: err}
			}
			continue
		}
		report := LoadReport{Source: SourceMigrated, Warning: failure.Warning, Err: failure.Err}
		if err := store.Save(ctx, migrated); err != nil {
			logger.Error("migrated state save failed", "err", err)
			report.Warning = fmt.Sprintf("migrated %s but could not save it: %v", step.label, err)
			report.Err = err
		}
		logger.Info("legacy data migrated", "source", step.label, "projects", len(migrated.Projects), "tasks", migrated.TaskCount())
		return migrated, report
	}
	if failure.Err != nil {
		failure.Source = SourceEmpty
		return domain.NewState(), failure
	}
	logger.Info("no saved state; starting empty")
	return domain.NewState(), LoadReport{Source: SourceEmpty}
}

// legacyStep is one migration source tried in order.
type legacyStep struct {
	label   string
	src     LegacySource
	migrate func([]byte) (domain.State, error)
}

// MigrateLegacy wraps a legacy single board as the sole, active project.
func MigrateLegacy(data []byte, projectName string) (domain.State, error) {
	board, err := DecodeLegacyBoard(data)
	if err != nil {
		return domain.State{}, err
	}
	if strings.TrimSpace(projectName) == "" {
		projectName = DefaultProjectName
	}
	st := domain.NewState()
	id, err := st.CreateProject(projectName)
	if err != nil {
		return domain.State{}, fmt.Errorf("create migrated project: %w", err)
	}
	project, _ := st.Project(id)
	project.Board = board
	if err := st.Validate(); err != nil {
		return domain.State{}, fmt.Errorf("%w: migrated state: %v", ErrCorruptState, err)
	}
	return st, nil
}
