package order

// OrderStatus is the order lifecycle status.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusBooked          OrderStatus = "BOOKED"
	OrderStatusInbound         OrderStatus = "INBOUND"
	OrderStatusProcessing      OrderStatus = "PROCESSING"
	OrderStatusReadyToShip     OrderStatus = "READY_TO_SHIP"
	OrderStatusDelivered       OrderStatus = "DELIVERED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusReturnRequested OrderStatus = "RETURN_REQUESTED"
	OrderStatusReturned        OrderStatus = "RETURNED"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) IsValid() bool {
	switch os {
	case OrderStatusPending, OrderStatusPaid, OrderStatusBooked,
		OrderStatusInbound, OrderStatusProcessing, OrderStatusReadyToShip,
		OrderStatusDelivered, OrderStatusCancelled,
		OrderStatusReturnRequested, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further lifecycle transition is allowed.
func (os OrderStatus) IsTerminal() bool {
	return os == OrderStatusDelivered || os == OrderStatusCancelled || os == OrderStatusReturned
}

// CanTransitionTo reports whether a staff-driven transition from os to next
// is allowed. Payment callbacks use their own paths and are not routed
// through this check.
func (os OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsValid() || os.IsTerminal() {
		return false
	}
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:         {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:            {OrderStatusBooked, OrderStatusCancelled},
		OrderStatusBooked:          {OrderStatusInbound, OrderStatusCancelled},
		OrderStatusInbound:         {OrderStatusProcessing, OrderStatusReturnRequested},
		OrderStatusProcessing:      {OrderStatusReadyToShip, OrderStatusReturnRequested},
		OrderStatusReadyToShip:     {OrderStatusDelivered, OrderStatusReturnRequested},
		OrderStatusReturnRequested: {OrderStatusReturned, OrderStatusProcessing},
	}
	for _, s := range allowed[os] {
		if s == next {
			return true
		}
	}
	return false
}

// GetAllOrderStatuses returns all valid order statuses.
func GetAllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusPaid,
		OrderStatusBooked,
		OrderStatusInbound,
		OrderStatusProcessing,
		OrderStatusReadyToShip,
		OrderStatusDelivered,
		OrderStatusCancelled,
		OrderStatusReturnRequested,
		OrderStatusReturned,
	}
}

// ExtraChargeStatus is the order-level sub-state of the extra-charge
// approval workflow.
type ExtraChargeStatus string

const (
	ExtraChargeNone            ExtraChargeStatus = "NONE"
	ExtraChargePendingManager  ExtraChargeStatus = "PENDING_MANAGER"
	ExtraChargePendingCustomer ExtraChargeStatus = "PENDING_CUSTOMER"
	ExtraChargePaid            ExtraChargeStatus = "PAID"
	ExtraChargeRejected        ExtraChargeStatus = "REJECTED"
	ExtraChargeReturnRequested ExtraChargeStatus = "RETURN_REQUESTED"
)

func (es ExtraChargeStatus) String() string {
	return string(es)
}

func (es ExtraChargeStatus) IsValid() bool {
	switch es {
	case ExtraChargeNone, ExtraChargePendingManager, ExtraChargePendingCustomer,
		ExtraChargePaid, ExtraChargeRejected, ExtraChargeReturnRequested:
		return true
	default:
		return false
	}
}
