package validators

import "go.mongodb.org/mongo-driver/bson"

// BookingValidator mirrors the booking data model so documents written outside
// the service are held to the same rules.
var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"date",
			"time",
			"guests",
			"name",
			"contact",
			"email",
		},
		"additionalProperties": false,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`,
			},

			"time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01][0-9]|2[0-3]):[0-5][0-9]$`,
			},

			"guests": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 100,
			},

			"contact": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9]{10}$`,
			},

			"email": bson.M{
				"bsonType": "string",
				"pattern":  `^[^@\s]+@[^@\s]+$`,
			},
		},
	},
}
