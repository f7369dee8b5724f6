package grpcserver

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Henry-E/auction-house/domain/auction"
	"github.com/Henry-E/auction-house/service"
)

func codeFor(k auction.Kind) codes.Code {
	switch k {
	case auction.KindPhase:
		return codes.FailedPrecondition
	case auction.KindValidation:
		return codes.InvalidArgument
	case auction.KindResource:
		return codes.ResourceExhausted
	case auction.KindAtomicity:
		return codes.Aborted
	case auction.KindNotFound:
		return codes.NotFound
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	var ae *auction.Error
	switch {
	case errors.As(err, &ae):
		return status.Error(codeFor(ae.Kind), ae.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, service.ErrNeedsRecovery):
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// LoggingInterceptor logs every call with its status code.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	log = log.With().Str("module", "grpc").Logger()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		ev := log.Debug()
		if code != codes.OK {
			ev = log.Info().Err(err)
		}
		ev.Str("method", info.FullMethod).Stringer("code", code).Dur("took", time.Since(start)).Msg("rpc")
		return resp, err
	}
}
