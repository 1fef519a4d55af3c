package validator

type AssignDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"omitempty,max=64"`
}

type VerifyCardRequest struct {
	CardID string `json:"card_id" validate:"required,max=64"`
}

type VerifyPinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=12"`
}

type EnterAmountRequest struct {
	Operation   string `json:"operation" validate:"required,oneof=withdrawal deposit"`
	AmountMinor int64  `json:"amount_minor" validate:"gt=0"`
}

type TransferRequest struct {
	SourceAccount string `json:"source_account" validate:"required,max=34"`
	Destination   string `json:"destination" validate:"required,max=34,nefield=SourceAccount"`
	AmountMinor   int64  `json:"amount_minor" validate:"gt=0"`
}

type DecisionRequest struct {
	ID   string `json:"id" validate:"required,max=64"`
	Note string `json:"note" validate:"max=500"`
}
