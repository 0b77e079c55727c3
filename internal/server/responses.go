package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// responder writes JSON bodies, indented when configured.
type responder struct {
	indent bool
}

func (rs responder) json(w http.ResponseWriter, status int, v any) {
	var (
		data []byte
		err  error
	)
	if rs.indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		status = http.StatusInternalServerError
		data = []byte(fmt.Sprintf("%q", "internal_error"))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (rs responder) ok(w http.ResponseWriter, v any) {
	if v == nil {
		v = "ok"
	}
	rs.json(w, http.StatusOK, v)
}

func (rs responder) badRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "bad_request"
	}
	rs.json(w, http.StatusBadRequest, message)
}

func (rs responder) notFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "not_found"
	}
	rs.json(w, http.StatusNotFound, message)
}

// errorBody is the shape of an internal error response.
type errorBody struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (rs responder) internalError(w http.ResponseWriter, err error) {
	if err == nil {
		rs.json(w, http.StatusInternalServerError, "internal_error")
		return
	}
	rs.json(w, http.StatusInternalServerError, errorBody{Name: fmt.Sprintf("%T", err), Message: err.Error()})
}
