package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"reservations/internal/bookings/service"
	"reservations/internal/bookings/validator"
	apperrors "reservations/pkg/errors"
	httputil "reservations/pkg/http"
	"reservations/pkg/logger"
	"reservations/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	BookingsPath = "/api/v1/bookings"
	bookingPath  = BookingsPath + "/:id"

	MsgInvalidBody      = "Invalid request body"
	MsgNoBookings       = "No bookings found."
	MsgBookingCreated   = "Booking created successfully."
	MsgBookingUpdated   = "Booking updated successfully."
	MsgBookingDeleted   = "Booking deleted successfully."
	MsgRouteNotFound    = "404 Not Found"
	MsgMethodNotAllowed = "Method not allowed"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.List(r.Context())
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	message := ""
	if len(bookings) == 0 {
		message = MsgNoBookings
	}
	if err := httputil.WriteList(w, message, bookings); err != nil {
		h.log.Error("failed to write list response", "handler", "List", "operation", "WriteList", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, "", booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	input, ok := h.decodeInput(w, r, "Create")
	if !ok {
		return
	}

	booking, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, MsgBookingCreated, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	input, ok := h.decodeInput(w, r, "Update")
	if !ok {
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), input)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, MsgBookingUpdated, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := httputil.WriteSuccess(w, MsgBookingDeleted, nil); err != nil {
		h.log.Error("failed to write success response", "handler", "Delete", "operation", "WriteSuccess", "error", err)
	}
}

// decodeInput reads the JSON body. On failure it has already answered the request.
// Fields holding a value of the wrong JSON type are recorded in TypeErrors so they
// are reported together with the other violations.
func (h *BookingHandler) decodeInput(w http.ResponseWriter, r *http.Request, handler string) (*model.BookingInput, bool) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, handler, apperrors.PayloadTooLarge(tooLarge.Limit))
			return nil, false
		}
		if writeErr := httputil.WriteBadRequest(w, MsgInvalidBody); writeErr != nil {
			h.log.Error("failed to write bad request response", "handler", handler, "operation", "WriteBadRequest", "error", writeErr)
		}
		return nil, false
	}

	var input model.BookingInput
	for name, raw := range fields {
		single, err := json.Marshal(map[string]json.RawMessage{name: raw})
		if err != nil {
			continue
		}
		if err := json.Unmarshal(single, &input); err != nil {
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				continue
			}
			if input.TypeErrors == nil {
				input.TypeErrors = make(map[string]string)
			}
			field := name
			if typeErr.Field != "" {
				field = typeErr.Field
			}
			input.TypeErrors[field] = validator.TypeViolation(field, typeErr.Type)
		}
	}
	return &input, true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(BookingsPath, h.List)
	router.POST(BookingsPath, h.Create)
	router.GET(bookingPath, h.GetByID)
	router.PATCH(bookingPath, h.Update)
	router.DELETE(bookingPath, h.Delete)

	router.NotFound = http.HandlerFunc(h.routeNotFound)
	router.MethodNotAllowed = http.HandlerFunc(h.methodNotAllowed)
}

func (h *BookingHandler) routeNotFound(w http.ResponseWriter, r *http.Request) {
	if err := httputil.WriteJSON(w, http.StatusNotFound, httputil.Response{Error: MsgRouteNotFound}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "NotFound", "operation", "WriteJSON", "error", err)
	}
}

func (h *BookingHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	if err := httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.Response{Error: MsgMethodNotAllowed}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "MethodNotAllowed", "operation", "WriteJSON", "error", err)
	}
}

// RouteLabel collapses request paths onto their route pattern for metric labels.
func RouteLabel(path string) string {
	switch path {
	case BookingsPath, BookingsPath + "/", "/health", "/ready":
		return path
	}
	if id, ok := strings.CutPrefix(path, BookingsPath+"/"); ok && id != "" && !strings.Contains(id, "/") {
		return bookingPath
	}
	return "unmatched"
}
