package constants

// Action log types written to action_logs
const (
	ActionReqExtraCharge     = "REQ_EXTRA_CHARGE"
	ActionApproveExtraCharge = "APPROVE_EXTRA_CHARGE"
	ActionRejectExtraCharge  = "REJECT_EXTRA_CHARGE"
	ActionRespondExtraCharge = "RESPOND_EXTRA_CHARGE"
	ActionCancelExtraCharge  = "CANCEL_EXTRA_CHARGE"
	ActionConfirmPayment     = "CONFIRM_PAYMENT"
	ActionCancelPayment      = "CANCEL_PAYMENT"
	ActionAdjustPoints       = "ADJUST_POINTS"
	ActionExpirePoints       = "EXPIRE_POINTS"
	ActionChangeOrderStatus  = "CHANGE_ORDER_STATUS"
	ActionDeleteStaff        = "DELETE_STAFF"
)
