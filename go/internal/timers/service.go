package timers

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/fieldboss/go/internal/models"
)

// Service exposes a Store over Connect so viewers without database access can
// share the same table.
type Service struct {
	store Store
}

// NewService creates a new store RPC service
func NewService(store Store) *Service {
	return &Service{
		store: store,
	}
}

// Handler returns the path prefix and handler serving every store procedure.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(FetchActiveProcedure, connect.NewUnaryHandler(FetchActiveProcedure, s.FetchActive, opts...))
	mux.Handle(PurgeExpiredOrConflictingProcedure, connect.NewUnaryHandler(PurgeExpiredOrConflictingProcedure, s.PurgeExpiredOrConflicting, opts...))
	mux.Handle(InsertProcedure, connect.NewUnaryHandler(InsertProcedure, s.Insert, opts...))
	mux.Handle(DeleteExpiredProcedure, connect.NewUnaryHandler(DeleteExpiredProcedure, s.DeleteExpired, opts...))
	return "/" + TimerStoreName + "/", mux
}

// FetchActive lists the rows for a resource
func (s *Service) FetchActive(ctx context.Context, req *connect.Request[FetchActiveRequest]) (*connect.Response[FetchActiveResponse], error) {
	if err := validateResource(req.Msg.Resource); err != nil {
		return nil, err
	}

	rows, err := s.store.FetchActive(ctx, req.Msg.Resource)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if rows == nil {
		rows = []models.TimerRow{}
	}

	return connect.NewResponse(&FetchActiveResponse{Timers: rows}), nil
}

// PurgeExpiredOrConflicting deletes expired rows and the rows on a channel
func (s *Service) PurgeExpiredOrConflicting(ctx context.Context, req *connect.Request[PurgeExpiredOrConflictingRequest]) (*connect.Response[PurgeExpiredOrConflictingResponse], error) {
	if err := validateResource(req.Msg.Resource); err != nil {
		return nil, err
	}
	if err := models.ValidateChannel(req.Msg.Channel); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	now := models.FromMillis(req.Msg.NowMs)
	if err := s.store.PurgeExpiredOrConflicting(ctx, req.Msg.Resource, req.Msg.Channel, now); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&PurgeExpiredOrConflictingResponse{}), nil
}

// Insert persists a new timer row
func (s *Service) Insert(ctx context.Context, req *connect.Request[InsertRequest]) (*connect.Response[InsertResponse], error) {
	msg := req.Msg
	if err := validateResource(msg.Resource); err != nil {
		return nil, err
	}
	if err := models.ValidateChannel(msg.Channel); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if _, ok := msg.Resource.Duration(msg.Kind); !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind))
	}

	id, err := s.store.Insert(ctx, msg.Resource, msg.Channel, msg.Kind, models.FromMillis(msg.ExpiresAtMs))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&InsertResponse{ID: id}), nil
}

// DeleteExpired sweeps expired rows of every resource
func (s *Service) DeleteExpired(ctx context.Context, req *connect.Request[DeleteExpiredRequest]) (*connect.Response[DeleteExpiredResponse], error) {
	if err := s.store.DeleteExpired(ctx, models.FromMillis(req.Msg.NowMs)); err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&DeleteExpiredResponse{}), nil
}

func validateResource(r models.Resource) error {
	if !r.Valid() {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%w: %q", ErrUnknownResource, r))
	}
	return nil
}
