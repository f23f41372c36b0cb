package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"reservations/internal/migrations/mongo/validators"
	"reservations/pkg/logger"
)

const (
	BookingsCollection = "bookings"
	SlotIndexName      = "slot_unique"
)

// BookingsIndexes holds the unique (date, time) index that makes slot
// ownership authoritative at the store.
var BookingsIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "time", Value: 1},
		},
		Options: options.Index().SetName(SlotIndexName).SetUnique(true),
	},
}

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	collections := map[string]collectionDef{
		BookingsCollection: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", dbName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}

	return nil
}

// ensureIndexes fails when existing documents already violate a unique index.
func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	created, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", created)
	return nil
}
