package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/w1xm/rci_console/command"
	"github.com/w1xm/rci_console/console"
	"github.com/w1xm/rci_console/geometry"
)

type handler struct {
	c *console.Console
}

func newRouter(c *console.Console) *mux.Router {
	h := &handler{c: c}
	r := mux.NewRouter()
	r.HandleFunc("/api/status", h.status).Methods(http.MethodGet)
	r.HandleFunc("/api/state", h.state).Methods(http.MethodGet)
	r.HandleFunc("/api/click/{surface}", h.click).Methods(http.MethodPost)
	r.HandleFunc("/api/knob/{name}", h.knob).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/api/command/{name}", h.command).Methods(http.MethodPost)
	r.HandleFunc("/api/login", h.login).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "parsing json: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.c.Status())
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.c.View(time.Now()))
}

func (h *handler) click(w http.ResponseWriter, r *http.Request) {
	var p geometry.Point
	if !decode(w, r, &p) {
		return
	}
	a, err := h.c.Click(mux.Vars(r)["surface"], p)
	if errors.Is(err, console.ErrUnknownSurface) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, a)
}

type knobResponse struct {
	Text    string `json:"text"`
	Display string `json:"display"`
}

func (h *handler) knob(w http.ResponseWriter, r *http.Request) {
	var in console.KnobInput
	if r.Method == http.MethodPost && !decode(w, r, &in) {
		return
	}
	d, err := h.c.Knob(mux.Vars(r)["name"], in)
	switch {
	case errors.Is(err, console.ErrUnknownKnob):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, knobResponse{Text: d.Text(), Display: d.String()})
}

// command sends the named command with fields from the request body.
func (h *handler) command(w http.ResponseWriter, r *http.Request) {
	fields := make(map[string]interface{})
	if r.ContentLength != 0 && !decode(w, r, &fields) {
		return
	}
	name := mux.Vars(r)["name"]
	if name == (command.Ack{}).Name() {
		http.Error(w, "ack is sent by the session", http.StatusBadRequest)
		return
	}
	fields["command"] = name
	data, err := json.Marshal(fields)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cmd, err := command.Unmarshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.c.Send(cmd)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.c.Login(req.Password)
	w.WriteHeader(http.StatusNoContent)
}
