package model

// Booking is a stored reservation. A booking occupies exactly one slot, the
// (Date, Time) pair, and no two bookings may share a slot.
type Booking struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	Date    string `json:"date" bson:"date"`
	Time    string `json:"time" bson:"time"`
	Guests  int    `json:"guests" bson:"guests"`
	Name    string `json:"name" bson:"name"`
	Contact string `json:"contact" bson:"contact"`
	Email   string `json:"email" bson:"email"`
}

// BookingInput is the request body for both create and update. Update replaces
// the whole document, so every field is required in both cases.
type BookingInput struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string `json:"time" validate:"required,clock"`
	Guests  *int   `json:"guests" validate:"required,min=1"`
	Name    string `json:"name" validate:"required,min=3,max=100"`
	Contact string `json:"contact" validate:"required,contact"`
	Email   string `json:"email" validate:"required,email"`

	// TypeErrors maps a json field name to the violation recorded when its value
	// had the wrong JSON type. Such fields are left at their zero value.
	TypeErrors map[string]string `json:"-" validate:"-"`
}

// Slot is the unique key a booking holds.
type Slot struct {
	Date string
	Time string
}

func (b *Booking) Slot() Slot {
	return Slot{Date: b.Date, Time: b.Time}
}

// ToBooking copies a validated input into a new record. Callers must validate
// first; a nil Guests becomes zero.
func (in *BookingInput) ToBooking() *Booking {
	b := &Booking{
		Date:    in.Date,
		Time:    in.Time,
		Name:    in.Name,
		Contact: in.Contact,
		Email:   in.Email,
	}
	if in.Guests != nil {
		b.Guests = *in.Guests
	}
	return b
}

// Public returns the projection served by single-record reads: the record
// without its store identifier.
func (b *Booking) Public() *Booking {
	out := *b
	out.ID = ""
	return &out
}
