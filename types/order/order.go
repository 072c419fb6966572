package order

import (
	"fmt"

	orderModel "repair-ops/models/order"
	"repair-ops/types"
)

// OrderCreateRequest is the payload for creating a repair order.
type OrderCreateRequest struct {
	CustomerID  uint   `json:"customer_id" validate:"required"`
	ItemName    string `json:"item_name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty"`
	TotalPrice  int    `json:"total_price" validate:"gte=0"`
}

func (r OrderCreateRequest) Validate() error {
	return types.ValidateStruct(r)
}

// OrderStatusUpdateRequest moves an order along its lifecycle.
type OrderStatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

func (r OrderStatusUpdateRequest) Validate() error {
	if err := types.ValidateStruct(r); err != nil {
		return err
	}
	if !orderModel.OrderStatus(r.Status).IsValid() {
		return fmt.Errorf("status %q is not a valid order status", r.Status)
	}
	return nil
}

// Waybill directions.
const (
	WaybillInbound  = "INBOUND"
	WaybillOutbound = "OUTBOUND"
)

// WaybillAttachRequest attaches a courier waybill number to an order.
type WaybillAttachRequest struct {
	Direction string `json:"direction" validate:"required,oneof=INBOUND OUTBOUND"`
	WaybillNo string `json:"waybill_no" validate:"required,min=1,max=60"`
}

func (r WaybillAttachRequest) Validate() error {
	return types.ValidateStruct(r)
}
