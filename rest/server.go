// Copyright 2025 The Embedded Redis Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rest exposes a running embedded Redis topology over HTTP, for
// poking at a test cluster from outside the test process: listing
// instances, stopping and restarting individual ones, and reading their
// retained output.  The daemon and the ctl/monitor tools are its two
// consumers.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	embedded "github.com/ozimov/embedded-redis"
)

// Handler wraps a RedisCluster, adding http.Handler functionality.
type Handler struct {
	c *embedded.RedisCluster
	r *mux.Router
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

func info(s embedded.Redis) *InstanceInfo {
	return &InstanceInfo{
		Name:   s.Name(),
		Ports:  s.Ports(),
		Active: s.Active(),
	}
}

func (h *Handler) getCluster(w http.ResponseWriter, r *http.Request) {
	instances := h.c.Instances()
	ci := &ClusterInfo{
		Instances: len(instances),
		Ports:     h.c.Ports(),
	}
	for _, s := range instances {
		if s.Active() {
			ci.Active++
		}
	}
	h.writeJson(w, ci)
}

func (h *Handler) listInstances(w http.ResponseWriter, r *http.Request) {
	instances := h.c.Instances()
	l := make([]string, 0, len(instances))
	for _, s := range instances {
		l = append(l, s.Name())
	}
	h.writeJson(w, l)
}

func (h *Handler) findInstance(name string) (embedded.Redis, *Error) {
	if s := h.c.Find(name); s != nil {
		return s, nil
	}
	return nil, &Error{http.StatusNotFound, "Instance not found"}
}

func (h *Handler) getInstance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if s, e := h.findInstance(vars["instance"]); e != nil {
		h.writeError(w, e)
	} else {
		h.writeJson(w, info(s))
	}
}

func (h *Handler) startInstance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if s, e := h.findInstance(vars["instance"]); e != nil {
		h.writeError(w, e)
	} else if err := s.Start(); err != nil {
		h.writeError(w, &Error{http.StatusBadRequest, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) stopInstance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if s, e := h.findInstance(vars["instance"]); e != nil {
		h.writeError(w, e)
	} else if err := s.Stop(); err != nil {
		h.writeError(w, &Error{http.StatusInternalServerError, err.Error()})
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) getInstanceLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if s, e := h.findInstance(vars["instance"]); e != nil {
		h.writeError(w, e)
	} else {
		h.writeJson(w, s.LogRecords())
	}
}

func (h *Handler) getClusterLog(w http.ResponseWriter, r *http.Request) {
	h.writeJson(w, h.c.LogRecords())
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

// NewHandler returns an http.Handler for the cluster.  A non-nil
// registry additionally mounts Prometheus metrics at /metrics.
func NewHandler(c *embedded.RedisCluster, reg *prometheus.Registry) *Handler {
	r := mux.NewRouter()
	h := &Handler{c: c, r: r}
	r.HandleFunc("/cluster", h.getCluster).Methods("GET")
	r.HandleFunc("/cluster/log", h.getClusterLog).Methods("GET")
	r.HandleFunc("/instances", h.listInstances).Methods("GET")
	r.HandleFunc("/instances/{instance}", h.getInstance).Methods("GET")
	r.HandleFunc("/instances/{instance}/start", h.startInstance).Methods("POST")
	r.HandleFunc("/instances/{instance}/stop", h.stopInstance).Methods("POST")
	r.HandleFunc("/instances/{instance}/log", h.getInstanceLog).Methods("GET")
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg,
			promhttp.HandlerOpts{})).Methods("GET")
	}
	return h
}
