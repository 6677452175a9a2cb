package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/store-inventory/internal/core/domain"
	"github.com/rl1809/store-inventory/internal/core/service"
)

var errMissingSKU = status.Error(codes.InvalidArgument, "sku is required")

type GRPCHandler struct {
	inventoryService *service.InventoryService
	timeout          time.Duration
	validate         *validator.Validate
}

func NewGRPCHandler(inventoryService *service.InventoryService, timeout time.Duration) *GRPCHandler {
	return &GRPCHandler{
		inventoryService: inventoryService,
		timeout:          timeout,
		validate:         validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *GRPCHandler) AddInventory(ctx context.Context, req *AddInventoryRequest) (*InventoryReply, error) {
	if domain.NormalizeSKU(req.Product.SKU) == "" {
		return nil, errMissingSKU
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return newReply(h.inventoryService.AddInventory(ctx, req.Owner.owner(), req.Product)), nil
}

func (h *GRPCHandler) GetAllInventory(ctx context.Context, req *GetAllInventoryRequest) (*InventoryReply, error) {
	if err := h.check(req); err != nil {
		return nil, err
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return newReply(h.inventoryService.GetAllInventory(ctx, req.Owner.owner())), nil
}

func (h *GRPCHandler) UpdateInventory(ctx context.Context, req *UpdateInventoryRequest) (*InventoryReply, error) {
	if domain.NormalizeSKU(req.SKU) == "" {
		return nil, errMissingSKU
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return newReply(h.inventoryService.UpdateInventory(ctx, req.Owner.owner(), req.SKU, req.Product)), nil
}

func (h *GRPCHandler) DeleteInventory(ctx context.Context, req *DeleteInventoryRequest) (*InventoryReply, error) {
	if domain.NormalizeSKU(req.SKU) == "" {
		return nil, errMissingSKU
	}
	if err := h.check(req); err != nil {
		return nil, err
	}
	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	return newReply(h.inventoryService.DeleteInventory(ctx, req.Owner.owner(), req.SKU)), nil
}

// check applies the same field rules the HTTP binding enforces.
func (h *GRPCHandler) check(req any) error {
	if err := h.validate.Struct(req); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (h *GRPCHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// UnaryLogging logs each call with its gRPC status code.
func UnaryLogging() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		event := log.Info()
		if err != nil {
			event = log.Warn().Err(err)
		}
		if reply, ok := resp.(*InventoryReply); ok && reply != nil {
			event = event.Str("outcome", reply.Code)
		}
		event.
			Str("method", info.FullMethod).
			Str("grpc_code", status.Code(err).String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

// UnaryRecovery turns a handler panic into codes.Internal carrying the
// generic failure message.
func UnaryRecovery() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Interface("panic", r).
					Str("method", info.FullMethod).
					Msg("Recovered panic in gRPC handler")
				resp, err = nil, status.Error(codes.Internal, domain.Failed().Message)
			}
		}()
		return handler(ctx, req)
	}
}
