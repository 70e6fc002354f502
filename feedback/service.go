package feedback

import (
	iface "RouteGrader/interface"
	"context"

	"go.uber.org/zap"
)

// Service stores feedback locally and forwards it to the remote collection
// when an uploader is configured.
type Service struct {
	store    Store
	uploader *Uploader
	log      *zap.Logger
}

func NewService(store Store, uploader *Uploader, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, uploader: uploader, log: log}
}

// Submit returns the local id of the record. Upload failures are logged only.
func (s *Service) Submit(ctx context.Context, rec iface.FeedbackRecord) (string, error) {
	id, err := s.store.SaveFeedback(ctx, rec)
	if err != nil {
		return "", err
	}
	if s.uploader != nil {
		remote, err := s.uploader.Upload(ctx, rec)
		if err != nil {
			s.log.Warn("feedback upload failed", zap.String("id", id), zap.Error(err))
		} else {
			s.log.Info("feedback uploaded", zap.String("id", id), zap.String("remote", remote))
		}
	}
	return id, nil
}

func (s *Service) SaveRoute(ctx context.Context, route iface.SavedRoute) error {
	return s.store.SaveRoute(ctx, route)
}

func (s *Service) Routes(ctx context.Context, userID string) ([]iface.SavedRoute, error) {
	return s.store.Routes(ctx, userID)
}
