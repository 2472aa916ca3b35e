package web

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/bi-sensor/internal/bacapp"
	"github.com/sweeney/bi-sensor/internal/bacnet"
	"github.com/sweeney/bi-sensor/internal/binaryinput"
)

// maxWriteBody bounds the hex body of a PUT.
const maxWriteBody = 4096

// PropertyJSON is the response to a property read.
type PropertyJSON struct {
	Object   string `json:"object"`
	Property string `json:"property"`
	Value    string `json:"value"`
}

// WriteJSON is the response to a property write.
type WriteJSON struct {
	Object   string `json:"object"`
	Property string `json:"property"`
	Events   int    `json:"events"`
}

// ErrorJSON reports a rejected request. Protocol errors carry the class and
// code; malformed requests carry only a message.
type ErrorJSON struct {
	ErrorClass string `json:"error_class,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Message    string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, ErrorJSON{Message: fmt.Sprintf(format, args...)})
}

// protocolError maps a property error onto an HTTP status.
func protocolError(w http.ResponseWriter, err error) {
	var be *bacnet.Error
	if !errors.As(err, &be) {
		writeJSON(w, http.StatusInternalServerError, ErrorJSON{Message: err.Error()})
		return
	}

	code := http.StatusBadRequest
	switch be.Code {
	case bacnet.ErrorCodeUnknownObject, bacnet.ErrorCodeUnknownProperty:
		code = http.StatusNotFound
	case bacnet.ErrorCodeWriteAccessDenied:
		code = http.StatusForbidden
	}
	writeJSON(w, code, ErrorJSON{ErrorClass: be.Class.String(), ErrorCode: be.Code.String()})
}

// parsePropertyID accepts a property name such as "present-value" or its
// decimal identifier.
func parsePropertyID(s string) (bacnet.PropertyID, error) {
	if id, ok := bacnet.ParsePropertyID(s); ok {
		return id, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown property %q", s)
	}
	return bacnet.PropertyID(n), nil
}

type propertyRequest struct {
	instance   uint32
	property   bacnet.PropertyID
	arrayIndex *uint32
}

func (p propertyRequest) object() string {
	return bacapp.ObjectID{Type: bacnet.ObjectBinaryInput, Instance: p.instance}.String()
}

func parsePropertyRequest(r *http.Request) (propertyRequest, error) {
	var req propertyRequest

	n, err := strconv.ParseUint(r.PathValue("instance"), 10, 32)
	if err != nil {
		return req, fmt.Errorf("invalid instance %q", r.PathValue("instance"))
	}
	req.instance = uint32(n)

	if req.property, err = parsePropertyID(r.PathValue("property")); err != nil {
		return req, err
	}

	if idx := r.URL.Query().Get("index"); idx != "" {
		n, err := strconv.ParseUint(idx, 10, 32)
		if err != nil {
			return req, fmt.Errorf("invalid array index %q", idx)
		}
		i := uint32(n)
		req.arrayIndex = &i
	}
	return req, nil
}

func (s *Server) handleReadProperty(w http.ResponseWriter, r *http.Request) {
	req, err := parsePropertyRequest(r)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}

	data, err := s.object.ReadProperty(binaryinput.ReadPropertyData{
		ObjectInstance: req.instance,
		Property:       req.property,
		ArrayIndex:     req.arrayIndex,
	})
	if err != nil {
		protocolError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PropertyJSON{
		Object:   req.object(),
		Property: req.property.String(),
		Value:    hex.EncodeToString(data),
	})
}

func (s *Server) handleWriteProperty(w http.ResponseWriter, r *http.Request) {
	req, err := parsePropertyRequest(r)
	if err != nil {
		badRequest(w, "%v", err)
		return
	}

	var priority uint8
	if p := r.URL.Query().Get("priority"); p != "" {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			badRequest(w, "invalid priority %q", p)
			return
		}
		priority = uint8(n)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWriteBody+1))
	if err != nil {
		badRequest(w, "read body: %v", err)
		return
	}
	if len(body) > maxWriteBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorJSON{Message: "body too large"})
		return
	}
	value, err := hex.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		badRequest(w, "body is not hex: %v", err)
		return
	}

	events, err := s.object.WriteProperty(binaryinput.WritePropertyData{
		ObjectInstance: req.instance,
		Property:       req.property,
		ArrayIndex:     req.arrayIndex,
		Value:          value,
		Priority:       priority,
	})
	if err != nil {
		log.WithFields(log.Fields{
			"object":   req.object(),
			"property": req.property.String(),
		}).WithError(err).Info("web: write rejected")
		protocolError(w, err)
		return
	}

	if len(events) > 0 && s.onWrite != nil {
		s.onWrite(events)
	}
	writeJSON(w, http.StatusOK, WriteJSON{
		Object:   req.object(),
		Property: req.property.String(),
		Events:   len(events),
	})
}
