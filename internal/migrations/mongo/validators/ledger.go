package validators

import "go.mongodb.org/mongo-driver/bson"

var TransactionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"type", "amount", "status", "effect_applied", "session_id", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":    bson.M{"bsonType": "string"},
			"type":   bson.M{"enum": []string{"transfer", "withdrawal", "deposit"}},
			"amount": bson.M{"bsonType": "long", "minimum": 1},
			"status": bson.M{"enum": []string{
				"pending", "authorized", "success", "failure", "cancelled", "flagged", "accepted", "rejected",
			}},
			"effect_applied": bson.M{"bsonType": "bool"},
			"session_id":     bson.M{"bsonType": "string"},
			"created_at":     bson.M{"bsonType": "date"},
			"decided_at":     bson.M{"bsonType": "date"},
		},
	},
}

// Balances are never negative; conditional updates rely on this.
var AccountValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"number", "owner_id", "balance", "status"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":      bson.M{"bsonType": "string"},
			"number":   bson.M{"bsonType": "string"},
			"owner_id": bson.M{"bsonType": "string"},
			"balance":  bson.M{"bsonType": "long", "minimum": 0},
			"status":   bson.M{"enum": []string{"active", "frozen"}},
		},
	},
}

var ConfirmationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"content", "created_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"content":    bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
