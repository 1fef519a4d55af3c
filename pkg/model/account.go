package model

import "time"

type AccountStatus string

const (
	AccountActive AccountStatus = "active"
	AccountFrozen AccountStatus = "frozen"
)

type Account struct {
	ID        string        `bson:"_id" json:"id"`
	Number    string        `bson:"number" json:"number"`
	OwnerID   string        `bson:"owner_id" json:"owner_id"`
	Balance   Amount        `bson:"balance" json:"balance_minor"`
	Status    AccountStatus `bson:"status" json:"status"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
}

type Card struct {
	ID        string `db:"id" json:"id"`
	AccountID string `db:"account_id" json:"account_id"`
	PinHash   string `db:"pin_hash" json:"-"`
	Frozen    bool   `db:"frozen" json:"frozen"`
}

type DeviceStatus string

const (
	DeviceActive      DeviceStatus = "active"
	DeviceMaintenance DeviceStatus = "maintenance"
)

type Device struct {
	ID                string       `db:"id" json:"id"`
	Localization      string       `db:"localization" json:"localization"`
	Status            DeviceStatus `db:"status" json:"status"`
	PerOperationLimit Amount       `db:"per_operation_limit" json:"per_operation_limit_minor"`
}

// Confirmation is the receipt bound 1:1 to a terminal transaction.
type Confirmation struct {
	TransactionID string    `bson:"_id" json:"transaction_id"`
	Content       string    `bson:"content" json:"content"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}
