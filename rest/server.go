// Copyright 2026 The Llamavisor Authors
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

package rest

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/llamavisor/llamavisor"
)

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s      *llamavisor.Supervisor
	r      *mux.Router
	user   string
	secret string
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

// etagValue parses a decimal Etag.  Zero means no usable Etag; real
// serials are seeded from the clock and never hit zero.
func etagValue(tag string) int64 {
	tag = strings.Trim(tag, `"`)
	v, err := strconv.ParseInt(tag, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// pollSeconds returns how long the client asked us to hold the request,
// zero when this is a plain GET.
func pollSeconds(r *http.Request) int {
	if r.Header.Get(PollEtagHeader) == "" {
		return 0
	}
	secs, err := strconv.Atoi(r.Header.Get(PollTimeHeader))
	if err != nil || secs < 0 {
		return 0
	}
	if secs > maxPollSecs {
		secs = maxPollSecs
	}
	return secs
}

func (h *Handler) getInfo(w http.ResponseWriter, r *http.Request) {
	if wait := pollSeconds(r); wait > 0 {
		if tag := etagValue(r.Header.Get(PollEtagHeader)); tag != 0 {
			h.s.WatchSerial(tag, time.Duration(wait)*time.Second)
		}
	}
	st := h.s.Status()
	if last := etagValue(r.Header.Get("If-None-Match")); last != 0 &&
		last == st.Serial {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	workers := h.s.Workers()
	info := &Info{
		Name:       st.Name,
		Version:    llamavisor.Version,
		State:      st.State.String(),
		Pid:        st.Pid,
		Restarts:   st.Restarts,
		Created:    st.Created,
		Started:    st.Started,
		LastOutput: st.LastOutput,
		Stalled:    st.Stalled,
		Offload:    st.Offload,
		Workers:    len(workers),
	}
	for _, ep := range workers {
		if ep.Available() {
			info.Available++
		}
	}
	if st.Pid != 0 {
		// Best effort; the child can die while we look.
		if stats, e := llamavisor.SampleStats(st.Pid); e == nil {
			info.CPUPercent = stats.CPUPercent
			info.RSSBytes = stats.RSSBytes
		}
	}
	w.Header().Set("Etag", strconv.FormatInt(st.Serial, 10))
	h.writeJson(w, info)
}

func (h *Handler) getWorkers(w http.ResponseWriter, r *http.Request) {
	eps := h.s.Workers()
	l := make([]WorkerInfo, 0, len(eps))
	for _, ep := range eps {
		l = append(l, WorkerInfo{
			Address:   ep.Address,
			Host:      ep.Host,
			Port:      ep.Port,
			Available: ep.Available(),
		})
	}
	h.writeJson(w, l)
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	l := h.s.Log()
	if wait := pollSeconds(r); wait > 0 {
		if tag := etagValue(r.Header.Get(PollEtagHeader)); tag != 0 {
			l.Watch(tag, time.Duration(wait)*time.Second)
		}
	}
	last := etagValue(r.Header.Get("If-None-Match"))
	recs, id := l.GetRecords(last)
	if recs == nil && last != 0 {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Etag", strconv.FormatInt(id, 10))
	h.writeJson(w, recs)
}

func (h *Handler) postRestart(w http.ResponseWriter, r *http.Request) {
	h.s.RequestRestart()
	h.writeJson(w, ok)
}

// SetAuth requires HTTP basic auth on every request.  The secret may
// be given as a bcrypt hash, in which case passwords are checked
// against the hash; otherwise the comparison is constant time.
func (h *Handler) SetAuth(user string, secret string) {
	h.user = user
	h.secret = secret
}

func checkSecret(want string, got string) bool {
	if strings.HasPrefix(want, "$2") {
		e := bcrypt.CompareHashAndPassword([]byte(want), []byte(got))
		return e == nil
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if h.user != "" {
		user, pass, hasAuth := req.BasicAuth()
		if !hasAuth || user != h.user || !checkSecret(h.secret, pass) {
			w.Header().Set("WWW-Authenticate",
				`Basic realm="llamavisor"`)
			h.writeError(w, &Error{http.StatusUnauthorized,
				"Authentication required"})
			return
		}
	}
	h.r.ServeHTTP(w, req)
}

func NewHandler(s *llamavisor.Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.HandleFunc("/", h.getInfo).Methods("GET")
	r.HandleFunc("/workers", h.getWorkers).Methods("GET")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	r.HandleFunc("/restart", h.postRestart).Methods("POST")
	return h
}
