package service

import (
	"context"
	"errors"
	"time"

	"reservations/internal/bookings/events"
	bookingserrors "reservations/internal/bookings/errors"
	"reservations/internal/bookings/repository"
	"reservations/internal/bookings/validator"
	"reservations/pkg/config"
	apperrors "reservations/pkg/errors"
	"reservations/pkg/metrics"
	"reservations/pkg/model"
)

const (
	MsgIDRequired       = "Booking ID is required."
	MsgInvalidID        = "Invalid booking ID format."
	MsgNotInFuture      = "Booking date and time must be in the future."
	MsgSlotTaken        = "This slot is already booked."
	MsgDuplicateSlot    = "Duplicate booking detected. The date and time slot is already taken."
	MsgStoreUnavailable = "Booking store is unavailable. Please try again later."

	bookingResource = "Booking"
)

type BookingService interface {
	List(ctx context.Context) ([]*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Create(ctx context.Context, input *model.BookingInput) (*model.Booking, error)
	Update(ctx context.Context, id string, input *model.BookingInput) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
}

type bookingService struct {
	repo      repository.BookingRepository
	validator *validator.BookingValidator
	publisher events.Publisher
	metrics   *metrics.Metrics
	cfg       *config.Config
	now       func() time.Time
	location  *time.Location
}

type Option func(*bookingService)

// WithClock replaces time.Now as the reference for the future-instant check.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *bookingService) {
		s.metrics = m
	}
}

func NewBookingService(
	repo repository.BookingRepository,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	cfg *config.Config,
	opts ...Option,
) BookingService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}

	s := &bookingService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		location:  cfg.Location,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.location == nil {
		s.location = time.Local
	}
	return s
}

func (s *bookingService) List(ctx context.Context) (bookings []*model.Booking, err error) {
	defer s.record("list", &err)

	bookings, err = s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "error", err)
		return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}

	return bookings, nil
}

// GetByID returns the booking without its identifier.
func (s *bookingService) GetByID(ctx context.Context, id string) (booking *model.Booking, err error) {
	defer s.record("get", &err)

	if id == "" {
		return nil, apperrors.InvalidInput(MsgIDRequired)
	}

	booking, err = s.repo.FindByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrInvalidID):
			return nil, apperrors.InvalidInput(MsgInvalidID)
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID(bookingResource, id)
		default:
			s.cfg.Log.Error("Failed to retrieve booking", "id", id, "error", err)
			return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
		}
	}

	return booking.Public(), nil
}

func (s *bookingService) Create(ctx context.Context, input *model.BookingInput) (booking *model.Booking, err error) {
	defer s.record("create", &err)

	if err = s.validate(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindBySlot(ctx, input.Date, input.Time)
	switch {
	case err == nil && existing != nil:
		s.cfg.Log.Info("Booking rejected, slot already booked", "date", input.Date, "time", input.Time)
		return nil, apperrors.Conflict(MsgSlotTaken)
	case err != nil && !errors.Is(err, bookingserrors.ErrNotFound):
		s.cfg.Log.Error("Failed to check slot availability", "date", input.Date, "time", input.Time, "error", err)
		return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}

	booking = input.ToBooking()
	if err = s.repo.Create(ctx, booking); err != nil {
		if errors.Is(err, bookingserrors.ErrSlotTaken) {
			s.cfg.Log.Warn("Concurrent booking lost the slot", "date", input.Date, "time", input.Time)
			return nil, apperrors.Conflict(MsgDuplicateSlot)
		}
		s.cfg.Log.Error("Failed to create booking", "error", err)
		return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}

	s.cfg.Log.Info("Booking created successfully",
		"id", booking.ID,
		"date", booking.Date,
		"time", booking.Time,
		"guests", booking.Guests,
	)
	s.publish(ctx, events.EventBookingCreated, booking)
	return booking, nil
}

// Update replaces every field of the booking. A missing or malformed id is
// reported as NotFound before the payload is looked at.
func (s *bookingService) Update(ctx context.Context, id string, input *model.BookingInput) (updated *model.Booking, err error) {
	defer s.record("update", &err)

	if id == "" {
		return nil, apperrors.InvalidInput(MsgIDRequired)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID(bookingResource, id)
		}
		s.cfg.Log.Error("Failed to retrieve booking for update", "id", id, "error", err)
		return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}

	if err = s.validate(input); err != nil {
		return nil, err
	}

	holder, err := s.repo.FindBySlot(ctx, input.Date, input.Time)
	switch {
	case err == nil && holder != nil && holder.ID != current.ID:
		s.cfg.Log.Info("Update rejected, slot held by another booking",
			"id", id, "holder_id", holder.ID, "date", input.Date, "time", input.Time)
		return nil, apperrors.Conflict(MsgSlotTaken)
	case err != nil && !errors.Is(err, bookingserrors.ErrNotFound):
		s.cfg.Log.Error("Failed to check slot availability", "date", input.Date, "time", input.Time, "error", err)
		return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}

	updated, err = s.repo.Update(ctx, current.ID, input.ToBooking())
	if err != nil {
		switch {
		case errors.Is(err, bookingserrors.ErrSlotTaken):
			s.cfg.Log.Warn("Concurrent update lost the slot", "id", id, "date", input.Date, "time", input.Time)
			return nil, apperrors.Conflict(MsgDuplicateSlot)
		case errors.Is(err, bookingserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID(bookingResource, id)
		default:
			s.cfg.Log.Error("Failed to update booking", "id", id, "error", err)
			return nil, apperrors.StoreUnavailable(MsgStoreUnavailable, err)
		}
	}

	s.cfg.Log.Info("Booking updated successfully",
		"id", updated.ID,
		"date", updated.Date,
		"time", updated.Time,
	)
	s.publish(ctx, events.EventBookingUpdated, updated)
	return updated, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) (err error) {
	defer s.record("delete", &err)

	if id == "" {
		return apperrors.InvalidInput(MsgIDRequired)
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
			return apperrors.NotFoundWithID(bookingResource, id)
		}
		s.cfg.Log.Error("Failed to delete booking", "id", id, "error", err)
		return apperrors.StoreUnavailable(MsgStoreUnavailable, err)
	}

	s.cfg.Log.Info("Booking deleted successfully", "id", id)
	s.publish(ctx, events.EventBookingDeleted, removed)
	return nil
}

// validate runs the schema rules and then the future-instant rule. Every schema
// violation is reported; the headline is the first one.
func (s *bookingService) validate(input *model.BookingInput) error {
	if err := s.validator.Validate(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			messages := verrs.Messages()
			s.cfg.Log.Warn("Booking validation failed", "errors", messages)
			return apperrors.InvalidFields(messages[0], messages)
		}
		return apperrors.InvalidInput(err.Error())
	}

	instant, err := validator.SlotInstant(input.Date, input.Time, s.location)
	if err != nil {
		return apperrors.InvalidInput(err.Error())
	}
	if !instant.After(s.now()) {
		s.cfg.Log.Warn("Booking rejected, instant not in the future", "date", input.Date, "time", input.Time)
		return apperrors.InvalidInput(MsgNotInFuture)
	}

	return nil
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking) {
	if err := s.publisher.Publish(ctx, eventType, booking); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event",
			"event_type", eventType,
			"id", booking.ID,
			"error", err,
		)
	}
}

func (s *bookingService) record(operation string, errp *error) {
	outcome := metrics.OutcomeSuccess
	if *errp != nil {
		outcome = apperrors.AsAppError(*errp).Code
	}
	s.metrics.RecordAdmission(operation, outcome)
}
