package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"channel", "state", "version", "created_at", "updated_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":     bson.M{"bsonType": "string"},
			"channel": bson.M{"enum": []string{"ATM", "TRANSFER", "AML_REVIEW"}},
			"state": bson.M{"enum": []string{
				"IDLE", "DEVICE_ASSIGNED", "CARD_VERIFIED", "PIN_VERIFIED", "AMOUNT_ENTERED", "SUBMITTED",
				"SUCCESS", "FAILURE", "PENDING_REVIEW", "CONFIRMED", "RELEASED", "CANCELLED",
			}},
			"version":      bson.M{"bsonType": "long", "minimum": 0},
			"pin_failures": bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			"created_at":   bson.M{"bsonType": "date"},
			"updated_at":   bson.M{"bsonType": "date"},
		},
	},
}

var LeaseValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"kind", "resource_id", "holder_session_id", "acquired_at", "expires_at"},
		"properties": bson.M{
			"_id":               bson.M{"bsonType": "string"},
			"kind":              bson.M{"enum": []string{"DEVICE", "ACCOUNT"}},
			"resource_id":       bson.M{"bsonType": "string"},
			"holder_session_id": bson.M{"bsonType": "string"},
			"acquired_at":       bson.M{"bsonType": "date"},
			"expires_at":        bson.M{"bsonType": "date"},
		},
	},
}
