package rpc

import (
	iface "RouteGrader/interface"
	"RouteGrader/model"
	"RouteGrader/monitor"
	"RouteGrader/worker"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type gradeRequest struct {
	Boxes            []iface.Box `json:"boxes"`
	Width            float64     `json:"width"`
	Height           float64     `json:"height"`
	AcceptLargeHolds bool        `json:"acceptLargeHolds"`
}

type gradeReply struct {
	Grade             string    `json:"grade,omitempty"`
	Ordinal           int       `json:"ordinal"`
	Probabilities     []float64 `json:"probabilities,omitempty"`
	LargeHolds        int       `json:"largeHolds"`
	Holds             []string  `json:"holds"`
	Coordinates       []int     `json:"coordinates,omitempty"`
	NeedsConfirmation bool      `json:"needsConfirmation"`
}

type Server struct {
	pool   *worker.Pool
	models *model.Holder
	log    *zap.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func NewServer(pool *worker.Pool, models *model.Holder, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{pool: pool, models: models, log: log, closed: make(chan struct{})}
}

// Done is closed once a client asks the server to shut down.
func (s *Server) Done() <-chan struct{} {
	return s.closed
}

func (s *Server) Grade(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	monitor.RequestsTotal.WithLabelValues("grpc", "Grade").Inc()
	var in gradeRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}
	res, err := s.pool.Submit(ctx, worker.Job{
		Boxes:            in.Boxes,
		Extent:           iface.ImageExtent{Width: in.Width, Height: in.Height},
		AcceptLargeHolds: in.AcceptLargeHolds,
	})
	if err != nil {
		s.log.Warn("grade failed", zap.Int("boxes", len(in.Boxes)), zap.Error(err))
		return nil, toStatus(err)
	}
	reply := gradeReply{
		LargeHolds:        res.LargeHolds,
		Holds:             res.Holds,
		NeedsConfirmation: res.NeedsConfirmation,
		Ordinal:           -1,
	}
	if !res.NeedsConfirmation {
		reply.Grade = res.Grade.Label
		reply.Ordinal = res.Grade.Ordinal
		reply.Probabilities = res.Grade.Probabilities
		reply.Coordinates = res.Coordinates
	}
	return toStruct(reply)
}

func (s *Server) ModelInfo(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	monitor.RequestsTotal.WithLabelValues("grpc", "ModelInfo").Inc()
	n := s.models.Current()
	if n == nil {
		return nil, status.Error(codes.FailedPrecondition, worker.ErrNoModel.Error())
	}
	return toStruct(map[string]any{
		"dims":   n.Dims(),
		"digest": n.Digest(),
	})
}

func (s *Server) Shutdown(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	monitor.RequestsTotal.WithLabelValues("grpc", "Shutdown").Inc()
	s.closeOnce.Do(func() {
		s.log.Warn("shutdown requested over gRPC")
		close(s.closed)
	})
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	case errors.Is(err, iface.ErrInvalidExtent):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, worker.ErrNoModel):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, worker.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// StartGRPCServer serves srv on port in the background.
func StartGRPCServer(port int, srv *Server) (*grpc.Server, error) {
	addr := fmt.Sprintf(":%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	s := grpc.NewServer(grpc.ConnectionTimeout(10 * time.Second))
	RegisterGradeServiceServer(s, srv)
	go func() {
		srv.log.Info("gRPC server listening", zap.String("addr", addr))
		if err := s.Serve(lis); err != nil {
			srv.log.Error("gRPC server stopped", zap.Error(err))
		}
	}()
	return s, nil
}
