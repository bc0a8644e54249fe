// Package server is the local control daemon surface: a JSON-over-HTTP API
// bound to loopback, plus a human-readable status page. Browsers are the
// expected client, so cross-origin access is restricted and the status page
// is CSRF-protected.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/scarlett-tools/scarlettd/core"
	"github.com/scarlett-tools/scarlettd/memorywriter"
	"github.com/scarlett-tools/scarlettd/protocol"
	"github.com/scarlett-tools/scarlettd/transport"
)

const serverAddr = "127.0.0.1:21327"

type session struct {
	path   string
	id     string
	dev    *transport.Device
	engine protocol.Engine
	call   int32 // atomic
}

type Server struct {
	https   *http.Server
	bus     *transport.Bus
	version string
	mw      *memorywriter.MemoryWriter

	sessions      map[string]*session
	sessionsMutex sync.Mutex // for atomic access to sessions

	callInProgress bool       // we cannot make calls and enumeration at the same time
	callMutex      sync.Mutex // for atomic access to callInProgress, plus prevent enumeration
	lastHandles    []core.DeviceHandle
}

func New(bus *transport.Bus, version string, logger io.Writer, mw *memorywriter.MemoryWriter) (*Server, error) {
	https := &http.Server{
		Addr: serverAddr,
	}
	s := &Server{
		bus:      bus,
		https:    https,
		version:  version,
		mw:       mw,
		sessions: make(map[string]*session),
	}
	r := mux.NewRouter()

	sr := r.Methods("POST").Subrouter()

	sr.HandleFunc("/", s.Info)
	sr.HandleFunc("/listen", s.Listen)
	sr.HandleFunc("/enumerate", s.Enumerate)
	sr.HandleFunc("/acquire/{path}", s.Acquire)
	sr.HandleFunc("/acquire/{path}/{session}", s.Acquire)
	sr.HandleFunc("/release/{session}", s.Release)

	sr.HandleFunc("/volume/{session}/{output}", s.GetVolume)
	sr.HandleFunc("/volume/{session}/{output}/set/{db}", s.SetVolume)
	sr.HandleFunc("/volume/{session}/{output}/adjust/{delta}", s.AdjustVolume)
	sr.HandleFunc("/mute/{session}/{output}", s.GetMute)
	sr.HandleFunc("/mute/{session}/{output}/set/{state}", s.SetMute)
	sr.HandleFunc("/mute/{session}/{output}/toggle", s.ToggleMute)

	sr.HandleFunc("/meters/{session}", s.Meters)

	s.serveStatus(r)

	v, err := corsValidator()
	if err != nil {
		return nil, err
	}

	var h http.Handler = r
	// Restrict cross-origin access.
	h = CORS(v)(h)
	// Log after the request is done, in the Apache format.
	h = handlers.LoggingHandler(logger, h)
	// Log when the request is received.
	h = logRequest(h)

	https.Handler = h

	return s, nil
}

func logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		handler.ServeHTTP(w, r)
	})
}

func corsValidator() (OriginValidator, error) {
	// `localhost:8xxx` and `5xxx` are allowed for easing local development.
	lregex, err := regexp.Compile(`^https?://(localhost|127\.0\.0\.1):[58][[:digit:]]{3}$`)
	if err != nil {
		return nil, err
	}
	v := func(origin string) bool {
		return lregex.MatchString(origin)
	}

	return v, nil
}

func (s *Server) Run() error {
	return s.https.ListenAndServe()
}

func (s *Server) Close() error {
	return s.https.Close()
}

func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	type info struct {
		Version string `json:"version"`
	}
	s.checkJSONError(w, json.NewEncoder(w).Encode(info{
		Version: s.version,
	}))
}

type entry struct {
	Path    string  `json:"path"`
	Model   string  `json:"model"`
	Serial  string  `json:"serial"`
	Session *string `json:"session"`
}

func sortEntries(entries []entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

// Listen long-polls until the device list differs from the one the client
// sent, mirroring what /enumerate would return.
func (s *Server) Listen(w http.ResponseWriter, r *http.Request) {
	const (
		iterMax   = 600
		iterDelay = 500 // ms
	)
	var entries []entry

	err := json.NewDecoder(r.Body).Decode(&entries)
	defer func() {
		if errClose := r.Body.Close(); errClose != nil {
			s.mw.Log("listen body close: " + errClose.Error())
		}
	}()

	if err != nil {
		s.respondError(w, err)
		return
	}

	sortEntries(entries)

	for i := 0; i < iterMax; i++ {
		e, err := s.enumerate()
		if err != nil {
			s.respondError(w, err)
			return
		}
		if reflect.DeepEqual(entries, e) {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(iterDelay * time.Millisecond):
			}
		} else {
			entries = e
			break
		}
	}
	s.checkJSONError(w, json.NewEncoder(w).Encode(entries))
}

func (s *Server) Enumerate(w http.ResponseWriter, r *http.Request) {
	e, err := s.enumerate()
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.checkJSONError(w, json.NewEncoder(w).Encode(e))
}

func (s *Server) enumerate() ([]entry, error) {
	// Lock for atomic access to s.sessions.
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	// Lock for atomic access to s.callInProgress. It needs to be over the
	// whole function, so that a call does not actually start while
	// enumerating.
	s.callMutex.Lock()
	defer s.callMutex.Unlock()

	// Use saved handles if a call is in progress, otherwise enumerate.
	handles := s.lastHandles

	if !s.callInProgress {
		infos, err := s.bus.Enumerate()
		if err != nil {
			return nil, err
		}
		handles = resolveHandles(infos, s.mw)
		s.lastHandles = handles
	}

	entries := make([]entry, 0, len(handles))
	for _, h := range handles {
		e := entry{
			Path:   h.Path,
			Model:  h.ModelName,
			Serial: h.Serial,
		}
		for _, ss := range s.sessions {
			if ss.path == h.Path {
				// Copying to prevent overwriting on Acquire and wrong
				// comparison in Listen.
				ssidCopy := ss.id
				e.Session = &ssidCopy
			}
		}
		entries = append(entries, e)
	}
	// Also release all sessions of disconnected devices.
	for ssid, ss := range s.sessions {
		connected := false
		for _, h := range handles {
			if ss.path == h.Path {
				connected = true
			}
		}
		if !connected {
			if err := s.release(ssid); err != nil {
				s.mw.Log("release on disconnect: " + err.Error())
			}
		}
	}
	sortEntries(entries)
	return entries, nil
}

// resolveHandles maps raw bus infos to recognized devices, skipping
// unknown product IDs.
func resolveHandles(infos []core.USBInfo, mw *memorywriter.MemoryWriter) []core.DeviceHandle {
	handles := make([]core.DeviceHandle, 0, len(infos))
	for _, info := range infos {
		model, ok := core.LookupProductID(info.ProductID)
		if !ok {
			mw.Log("skipping unknown pid " + strconv.Itoa(int(info.ProductID)))
			continue
		}
		serial := info.Serial
		if serial == "" {
			serial = "Unknown"
		}
		handles = append(handles, core.DeviceHandle{
			Model:     model,
			ModelName: model.Name(),
			Serial:    serial,
			Path:      info.Path,
			Connected: true,
		})
	}
	return handles
}

var (
	ErrWrongPrevSession = errors.New("wrong previous session")
	ErrSessionNotFound  = errors.New("session not found")
	ErrUnknownDevice    = errors.New("device not recognized")
)

func (s *Server) Acquire(w http.ResponseWriter, r *http.Request) {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	vars := mux.Vars(r)
	path := vars["path"]
	prev := vars["session"]
	if prev == "null" {
		prev = ""
	}

	var acquired *session
	for _, ss := range s.sessions {
		if ss.path == path {
			acquired = ss
			break
		}
	}

	if acquired == nil {
		acquired = &session{path: path, call: 0}
	}
	if acquired.id != prev {
		s.respondError(w, ErrWrongPrevSession)
		return
	}

	if prev != "" {
		if err := s.release(prev); err != nil {
			s.respondError(w, err)
			return
		}
	}

	model, ok := s.modelAt(path)
	if !ok {
		s.respondError(w, ErrUnknownDevice)
		return
	}

	dev, err := s.tryConnect(path)
	if err != nil {
		s.respondError(w, err)
		return
	}

	engine := protocol.New(model.Generation(), dev, dev.InterfaceNumber(), s.mw)
	if err := engine.Init(); err != nil {
		if errClose := dev.Close(); errClose != nil {
			s.mw.Log("close after failed init: " + errClose.Error())
		}
		s.respondError(w, err)
		return
	}

	acquired.dev = dev
	acquired.engine = engine
	acquired.id = s.newSession()

	s.sessions[acquired.id] = acquired

	type result struct {
		Session string `json:"session"`
	}

	s.checkJSONError(w, json.NewEncoder(w).Encode(result{
		Session: acquired.id,
	}))
}

func (s *Server) modelAt(path string) (core.Model, bool) {
	for _, h := range s.lastHandles {
		if h.Path == path {
			return h.Model, true
		}
	}
	// Not seen yet; enumerate directly.
	infos, err := s.bus.Enumerate()
	if err != nil {
		return 0, false
	}
	for _, h := range resolveHandles(infos, s.mw) {
		if h.Path == path {
			return h.Model, true
		}
	}
	return 0, false
}

// Opening right after a hotplug event can race the OS driver attach. Try 3
// times with a 100ms delay.
func (s *Server) tryConnect(path string) (*transport.Device, error) {
	tries := 0
	for {
		dev, err := s.bus.Open(path)
		if err != nil {
			if tries < 3 {
				tries++
				time.Sleep(100 * time.Millisecond)
			} else {
				return nil, err
			}
		} else {
			return dev, nil
		}
	}
}

func (s *Server) release(session string) error {
	acquired := s.sessions[session]
	if acquired == nil {
		return ErrSessionNotFound
	}
	delete(s.sessions, session)

	return acquired.dev.Close()
}

func (s *Server) Release(w http.ResponseWriter, r *http.Request) {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	vars := mux.Vars(r)
	session := vars["session"]

	if err := s.release(session); err != nil {
		s.respondError(w, err)
		return
	}

	s.checkJSONError(w, json.NewEncoder(w).Encode(vars))
}

// withSession runs one engine call under the session's single-call gate.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(ss *session) (interface{}, error)) {
	s.callMutex.Lock()
	s.callInProgress = true
	s.callMutex.Unlock()

	defer func() {
		s.callMutex.Lock()
		s.callInProgress = false
		s.callMutex.Unlock()
	}()

	vars := mux.Vars(r)
	session := vars["session"]

	s.sessionsMutex.Lock()
	acquired := s.sessions[session]
	s.sessionsMutex.Unlock()

	if acquired == nil {
		s.respondError(w, ErrSessionNotFound)
		return
	}

	freeToCall := atomic.CompareAndSwapInt32(&acquired.call, 0, 1)
	if !freeToCall {
		http.Error(w, "other call in progress", http.StatusInternalServerError)
		return
	}
	defer func() {
		atomic.StoreInt32(&acquired.call, 0)
	}()

	res, err := fn(acquired)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.checkJSONError(w, json.NewEncoder(w).Encode(res))
}

type volumeResult struct {
	Output   int `json:"output"`
	VolumeDB int `json:"volumeDb"`
}

type muteResult struct {
	Output int  `json:"output"`
	Muted  bool `json:"muted"`
}

func muxInt(r *http.Request, name string) (int, error) {
	return strconv.Atoi(mux.Vars(r)[name])
}

func (s *Server) GetVolume(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		db, err := ss.engine.GetOutputVolume(output)
		if err != nil {
			return nil, err
		}
		return volumeResult{Output: output, VolumeDB: db}, nil
	})
}

func (s *Server) SetVolume(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	db, err := muxInt(r, "db")
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		if err := ss.engine.SetOutputVolume(output, db); err != nil {
			return nil, err
		}
		return volumeResult{Output: output, VolumeDB: protocol.ClampDB(db)}, nil
	})
}

func (s *Server) AdjustVolume(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	delta, err := muxInt(r, "delta")
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		db, err := ss.engine.AdjustOutputVolume(output, delta)
		if err != nil {
			return nil, err
		}
		return volumeResult{Output: output, VolumeDB: db}, nil
	})
}

func (s *Server) GetMute(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		muted, err := ss.engine.GetMute(output)
		if err != nil {
			return nil, err
		}
		return muteResult{Output: output, Muted: muted}, nil
	})
}

func (s *Server) SetMute(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	state := mux.Vars(r)["state"]
	muted := state == "on" || state == "true" || state == "1"
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		if err := ss.engine.SetMute(output, muted); err != nil {
			return nil, err
		}
		return muteResult{Output: output, Muted: muted}, nil
	})
}

func (s *Server) ToggleMute(w http.ResponseWriter, r *http.Request) {
	output, err := muxInt(r, "output")
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		muted, err := ss.engine.ToggleMute(output)
		if err != nil {
			return nil, err
		}
		return muteResult{Output: output, Muted: muted}, nil
	})
}

func (s *Server) Meters(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ss *session) (interface{}, error) {
		return ss.engine.GetLevelMeters()
	})
}

var latestSessionID = 0

func (s *Server) newSession() string {
	latestSessionID++
	return strconv.Itoa(latestSessionID)
}

func (s *Server) checkJSONError(w http.ResponseWriter, err error) {
	if err != nil {
		s.mw.Log("error while writing response: " + err.Error())
	}
}

func (s *Server) respondError(w http.ResponseWriter, err error) {
	type jsonError struct {
		Error string `json:"error"`
	}
	s.mw.Log("returning error: " + err.Error())
	w.WriteHeader(http.StatusBadRequest)

	// if even the encoder of the error errors, just log the error
	if errE := json.NewEncoder(w).Encode(jsonError{Error: err.Error()}); errE != nil {
		s.mw.Log("error while writing error: " + errE.Error())
	}
}
