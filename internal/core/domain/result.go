package domain

// Code is the symbolic outcome of an inventory operation.
type Code string

const (
	CodeSuccess  Code = "success"
	CodeCreated  Code = "created"
	CodeAccepted Code = "accepted"
	CodeNotFound Code = "not_found"
	CodeConflict Code = "conflict"
	CodeFail     Code = "fail"
)

// Result is what every inventory operation produces: a code, a short status,
// a human readable message and, for listings, the product payload.
type Result struct {
	Code    Code
	Status  string
	Message string
	Data    []Product
}

// OK reports whether the result is one of the success codes.
func (r Result) OK() bool {
	switch r.Code {
	case CodeSuccess, CodeCreated, CodeAccepted:
		return true
	}
	return false
}

const (
	StatusProductAdded      = "Product Added"
	StatusProductExists     = "Product Already Exist"
	StatusProductUpdated    = "Product Updated"
	StatusProductDeleted    = "Product Deleted"
	StatusProductNotFound   = "Product Not Found"
	StatusStoreNotFound     = "Store Not Found"
	StatusInventoryFound    = "Success"
	StatusInventoryNotFound = "Inventory Not Found"
	StatusFail              = "fail"
)

func ProductAdded() Result {
	return Result{Code: CodeCreated, Status: StatusProductAdded, Message: "The Product is added to the store"}
}

func ProductExists() Result {
	return Result{Code: CodeConflict, Status: StatusProductExists, Message: "The Product is already exist in the store"}
}

func ProductUpdated() Result {
	return Result{Code: CodeAccepted, Status: StatusProductUpdated, Message: "The Product is updated in the store"}
}

func ProductDeleted() Result {
	return Result{Code: CodeAccepted, Status: StatusProductDeleted, Message: "The Product is deleted from the store"}
}

func ProductNotFound() Result {
	return Result{Code: CodeNotFound, Status: StatusProductNotFound, Message: "The Product is not found in the store"}
}

func StoreNotFound() Result {
	return Result{Code: CodeNotFound, Status: StatusStoreNotFound, Message: "The Store is not found"}
}

func InventoryFound(products []Product) Result {
	if products == nil {
		products = []Product{}
	}
	return Result{Code: CodeSuccess, Status: StatusInventoryFound, Message: "The Inventory is found", Data: products}
}

func InventoryNotFound() Result {
	return Result{Code: CodeNotFound, Status: StatusInventoryNotFound, Message: "The Inventory is not found in the store"}
}

// Failed is the catch-all outcome for unexpected errors. It carries no detail.
func Failed() Result {
	return Result{Code: CodeFail, Status: StatusFail, Message: "Something went wrong!"}
}
