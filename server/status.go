package server

import (
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
)

// The status page on /status/ shows the daemon version, the attached
// devices and the rotating in-memory log; /status/log.gz serves the same
// log gzipped for attaching to bug reports.

const csrfkey = "x91ckq3vd02jmpw8rhtyf64u5bze07an"

func (s *Server) serveStatus(r *mux.Router) {
	r.Methods("GET").Path("/").HandlerFunc(statusRedirect)

	sr := r.PathPrefix("/status").Subrouter()
	sr.Methods("GET").Path("/").HandlerFunc(s.statusPage)
	sr.Methods("POST").Path("/log.gz").HandlerFunc(s.statusGzip)

	sr.Use(csrf.Protect([]byte(csrfkey), csrf.Secure(false)))
	sr.Use(OriginCheck(map[string]string{
		"/status/":       "",
		"/status/log.gz": "http://" + serverAddr,
	}))
}

func statusRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "http://"+serverAddr+"/status/", http.StatusMovedPermanently)
}

func (s *Server) statusGzip(w http.ResponseWriter, r *http.Request) {
	s.mw.Log("building gzip")

	gzip, err := s.mw.Gzip(s.version + "\nCurrent log:\n")
	if err != nil {
		respondStatusError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/gzip")

	if _, err := w.Write(gzip); err != nil {
		respondStatusError(w, err)
		return
	}
}

func (s *Server) statusPage(w http.ResponseWriter, r *http.Request) {
	s.mw.Log("building status page")

	var templateErr error
	tdevs, err := s.statusEnumerate()
	if err != nil {
		s.mw.Log("enumerate err " + err.Error())
		templateErr = err
	}

	log, err := s.mw.String(s.version + "\n")
	if err != nil {
		respondStatusError(w, err)
		return
	}

	isErr := templateErr != nil
	strErr := ""
	if templateErr != nil {
		strErr = templateErr.Error()
	}

	data := &statusTemplateData{
		Version:     s.version,
		Devices:     tdevs,
		DeviceCount: len(tdevs),
		Log:         log,
		IsError:     isErr,
		Error:       strErr,
		CSRFField:   csrf.TemplateField(r),
	}

	if err := statusTemplate.Execute(w, data); err != nil {
		respondStatusError(w, err)
		return
	}
}

func respondStatusError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) statusEnumerate() ([]statusTemplateDevice, error) {
	e, err := s.enumerate()
	if err != nil {
		return nil, err
	}

	tdevs := make([]statusTemplateDevice, 0)

	for _, dev := range e {
		var session string
		if dev.Session != nil {
			session = *dev.Session
		}
		tdevs = append(tdevs, statusTemplateDevice{
			Model:   dev.Model,
			Serial:  dev.Serial,
			Path:    dev.Path,
			Used:    dev.Session != nil,
			Session: session,
		})
	}
	return tdevs, nil
}
