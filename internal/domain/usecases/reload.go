package usecases

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/0xcro3dile/keyreply-go/internal/domain/entities"
	"github.com/0xcro3dile/keyreply-go/internal/domain/ports"
)

// SnapshotTarget receives freshly loaded knowledge bases.
type SnapshotTarget interface {
	Swap(kb *entities.KnowledgeBase)
}

// ReloadUseCase loads knowledge-base snapshots from a source.
type ReloadUseCase struct {
	source     ports.KnowledgeSource
	fallbackID string
	observer   ports.Observer
	logger     *zap.Logger
}

// NewReloadUseCase creates a ReloadUseCase with injected dependencies.
func NewReloadUseCase(source ports.KnowledgeSource, fallbackID string, observer ports.Observer, logger *zap.Logger) *ReloadUseCase {
	if fallbackID == "" {
		fallbackID = entities.DefaultFallbackID
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReloadUseCase{
		source:     source,
		fallbackID: fallbackID,
		observer:   observer,
		logger:     logger,
	}
}

// Load reads and validates the source.
//
// On a LoadError it logs the diagnostic and returns an empty knowledge base together with the
// error, so callers can keep running. A missing fallback entry is logged as a configuration error
// but the snapshot is still returned: every reply will then surface the diagnostic.
func (uc *ReloadUseCase) Load(ctx context.Context) (*entities.KnowledgeBase, error) {
	name := uc.source.Describe()

	entries, err := uc.source.Load(ctx)
	if err == nil {
		err = entities.Validate(entries, uc.fallbackID)
	}
	if err != nil {
		var le *entities.LoadError
		if !errors.As(err, &le) {
			err = &entities.LoadError{Source: name, Err: err}
		}
		uc.logger.Error("knowledge base unavailable", zap.String("source", name), zap.Error(err))
		uc.observer.KnowledgeLoaded(0)
		return entities.EmptyKnowledgeBase(name), err
	}

	kb := entities.NewKnowledgeBase(name, entries)
	if _, ok := kb.Lookup(uc.fallbackID); !ok {
		uc.logger.Error("knowledge base has no fallback entry",
			zap.String("source", name),
			zap.String("fallback_id", uc.fallbackID),
			zap.Error(entities.ErrConfiguration))
	}
	uc.observer.KnowledgeLoaded(kb.Len())
	uc.logger.Info("knowledge base loaded", zap.String("source", name), zap.Int("entries", kb.Len()))
	return kb, nil
}

// Reload loads a new snapshot and hands it to target.
// A failed reload keeps the target's current snapshot.
func (uc *ReloadUseCase) Reload(ctx context.Context, target SnapshotTarget) error {
	kb, err := uc.Load(ctx)
	if err != nil {
		return err
	}
	target.Swap(kb)
	return nil
}

// Watch reloads into target whenever the watcher reports path created or modified.
// It blocks until ctx is done or the watcher's channel closes.
func (uc *ReloadUseCase) Watch(ctx context.Context, watcher ports.FileWatcher, path string, target SnapshotTarget) error {
	events, err := watcher.Watch(ctx, path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Operation == ports.FileDeleted {
				uc.logger.Warn("knowledge file removed, keeping current snapshot", zap.String("path", event.Path))
				continue
			}
			uc.logger.Debug("knowledge file changed",
				zap.String("path", event.Path),
				zap.Stringer("op", event.Operation))
			if err := uc.Reload(ctx, target); err != nil {
				uc.logger.Warn("reload failed, keeping current snapshot", zap.Error(err))
			}
		}
	}
}
