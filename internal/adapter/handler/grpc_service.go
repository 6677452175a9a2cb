package handler

import (
	"context"

	"google.golang.org/grpc"

	"github.com/rl1809/store-inventory/internal/core/domain"
)

const inventoryServiceName = "inventory.v1.Inventory"

type OwnerMessage struct {
	UserID int64  `json:"user_id" validate:"min=1"`
	Email  string `json:"email" validate:"required,email"`
}

func (o OwnerMessage) owner() domain.Owner {
	return domain.NewOwner(o.UserID, o.Email)
}

type AddInventoryRequest struct {
	Owner   OwnerMessage   `json:"owner"`
	Product domain.Product `json:"product"`
}

type GetAllInventoryRequest struct {
	Owner OwnerMessage `json:"owner"`
}

type UpdateInventoryRequest struct {
	Owner   OwnerMessage   `json:"owner"`
	SKU     string         `json:"sku"`
	Product domain.Product `json:"product"`
}

type DeleteInventoryRequest struct {
	Owner OwnerMessage `json:"owner"`
	SKU   string       `json:"sku"`
}

// InventoryReply carries every outcome, including not found and conflict.
type InventoryReply struct {
	Code    string           `json:"code"`
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    []domain.Product `json:"data"`
}

func newReply(res domain.Result) *InventoryReply {
	return &InventoryReply{
		Code:    string(res.Code),
		Status:  res.Status,
		Message: res.Message,
		Data:    res.Data,
	}
}

type InventoryServer interface {
	AddInventory(context.Context, *AddInventoryRequest) (*InventoryReply, error)
	GetAllInventory(context.Context, *GetAllInventoryRequest) (*InventoryReply, error)
	UpdateInventory(context.Context, *UpdateInventoryRequest) (*InventoryReply, error)
	DeleteInventory(context.Context, *DeleteInventoryRequest) (*InventoryReply, error)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: inventoryServiceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddInventory", Handler: unaryHandler("AddInventory", InventoryServer.AddInventory)},
		{MethodName: "GetAllInventory", Handler: unaryHandler("GetAllInventory", InventoryServer.GetAllInventory)},
		{MethodName: "UpdateInventory", Handler: unaryHandler("UpdateInventory", InventoryServer.UpdateInventory)},
		{MethodName: "DeleteInventory", Handler: unaryHandler("DeleteInventory", InventoryServer.DeleteInventory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/inventory",
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + inventoryServiceName + "/" + method
}

func unaryHandler[Req any](method string, call func(InventoryServer, context.Context, *Req) (*InventoryReply, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		handler := func(ctx context.Context, req any) (any, error) {
			reply, err := call(srv.(InventoryServer), ctx, req.(*Req))
			if err != nil {
				return nil, err
			}
			return reply, nil
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, in, info, handler)
	}
}

// InventoryClient calls the inventory service over a JSON-coded connection.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) AddInventory(ctx context.Context, in *AddInventoryRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return c.invoke(ctx, "AddInventory", in, opts)
}

func (c *InventoryClient) GetAllInventory(ctx context.Context, in *GetAllInventoryRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return c.invoke(ctx, "GetAllInventory", in, opts)
}

func (c *InventoryClient) UpdateInventory(ctx context.Context, in *UpdateInventoryRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return c.invoke(ctx, "UpdateInventory", in, opts)
}

func (c *InventoryClient) DeleteInventory(ctx context.Context, in *DeleteInventoryRequest, opts ...grpc.CallOption) (*InventoryReply, error) {
	return c.invoke(ctx, "DeleteInventory", in, opts)
}

func (c *InventoryClient) invoke(ctx context.Context, method string, in any, opts []grpc.CallOption) (*InventoryReply, error) {
	out := new(InventoryReply)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
