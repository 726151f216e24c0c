package archive

import (
	"context"

	"codeberg.org/mutker/powermon/internal/errors"
	"codeberg.org/mutker/powermon/internal/logger"
	"codeberg.org/mutker/powermon/internal/powerlog"
)

type service struct {
	repo Repository
	cfg  Config
}

// No-op implementation
type noopCollector struct{}

func NewService(cfg Config) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	// If the archive is disabled, return a no-op collector
	if !cfg.Enabled {
		logger.Debug().Msg("Event archive disabled, using no-op collector")
		return &noopCollector{}, nil
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, event powerlog.Event) error {
	errFactory := errors.New()

	if event.Kind != powerlog.KindOn && event.Kind != powerlog.KindOff {
		return errFactory.WithData(ErrInvalidEvent, event.Kind)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Record(event); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) Close() error {
	errFactory := errors.New()

	if err := s.repo.Close(); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

// No-op implementation
func (*noopCollector) Record(_ context.Context, _ powerlog.Event) error {
	return nil
}

func (*noopCollector) Close() error {
	return nil
}
