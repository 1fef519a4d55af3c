package model

import (
	"fmt"
	"time"
)

type ResourceKind string

const (
	ResourceDevice  ResourceKind = "DEVICE"
	ResourceAccount ResourceKind = "ACCOUNT"
)

// Lease is a time-bounded exclusive claim on one resource by one session.
type Lease struct {
	ID              string       `bson:"_id" json:"id"`
	Kind            ResourceKind `bson:"kind" json:"kind"`
	ResourceID      string       `bson:"resource_id" json:"resource_id"`
	HolderSessionID string       `bson:"holder_session_id" json:"holder_session_id"`
	AcquiredAt      time.Time    `bson:"acquired_at" json:"acquired_at"`
	ExpiresAt       time.Time    `bson:"expires_at" json:"expires_at"`
}

func LeaseKey(kind ResourceKind, resourceID string) string {
	return fmt.Sprintf("%s:%s", kind, resourceID)
}

func (l *Lease) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

func (l *Lease) HeldBy(sessionID string) bool {
	return l.HolderSessionID == sessionID
}
