package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "reservations/internal/bookings/errors"
	"reservations/pkg/config"
	"reservations/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type BookingRepository interface {
	FindAll(ctx context.Context) ([]*model.Booking, error)
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindBySlot(ctx context.Context, date, clock string) (*model.Booking, error)
	Create(ctx context.Context, booking *model.Booking) error
	Update(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error)
	Delete(ctx context.Context, id string) (*model.Booking, error)
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout bounds a store call by timeout without extending an earlier caller deadline.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}
	return objectID, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	// ObjectIDs grow monotonically, so this is creation order.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

// FindBySlot returns the booking holding (date, clock) or ErrNotFound.
func (r *mongoBookingRepository) FindBySlot(ctx context.Context, date, clock string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"date": date, "time": clock}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking by slot: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	doc := *booking
	doc.ID = ""
	result, err := r.collection.InsertOne(ctx, &doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s %s", bookingserrors.ErrSlotTaken, booking.Date, booking.Time)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

// Update overwrites every field of the booking with id and returns the stored result.
func (r *mongoBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{
		"$set": bson.M{
			"date":    booking.Date,
			"time":    booking.Time,
			"guests":  booking.Guests,
			"name":    booking.Name,
			"contact": booking.Contact,
			"email":   booking.Email,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Booking
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s %s", bookingserrors.ErrSlotTaken, booking.Date, booking.Time)
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	return &updated, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var removed model.Booking
	err = r.collection.FindOneAndDelete(ctx, bson.M{"_id": objectID}).Decode(&removed)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}

	return &removed, nil
}
