package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// ClientCookie names the cookie that identifies a browser's storage namespace.
const ClientCookie = "portal_client"

const maxBody = 1 << 20

// NewClientID returns a fresh client id.
func NewClientID() string {
	return uuid.NewString()
}

// Handler serves the JSON API over net/http.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", a.HandleLogin)
	mux.HandleFunc("POST /api/auth/signup", a.HandleSignup)
	mux.HandleFunc("POST /api/auth/logout/{role}", a.HandleLogout)
	mux.HandleFunc("GET /api/admin/stats", a.HandleStats)
	mux.HandleFunc("POST /api/admin/payments", a.HandleCharge)
	mux.HandleFunc("GET /api/user/profile", a.HandleProfile)
	mux.HandleFunc("PUT /api/user/profile", a.HandleSaveProfile)
	mux.HandleFunc("GET /api/user/quote-request", a.HandleWizard)
	mux.HandleFunc("POST /api/user/quote-request/{action}", a.HandleWizard)
	mux.HandleFunc("GET /api/{role}/{resource}", a.HandleRecords(portal.OpList))
	mux.HandleFunc("GET /api/{role}/{resource}/{id}", a.HandleRecords(portal.OpDetail))
	mux.HandleFunc("POST /api/{role}/{resource}", a.HandleRecords(portal.OpCreate))
	mux.HandleFunc("PUT /api/{role}/{resource}/{id}", a.HandleRecords(portal.OpUpdate))
	mux.HandleFunc("DELETE /api/{role}/{resource}/{id}", a.HandleRecords(portal.OpDelete))
	if a.Events != nil {
		mux.Handle("GET /api/events", a.Events)
	}
	return mux
}

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	clientID := ensureClientID(w, r)
	writeReply(w, a.Login(r.Context(), clientID, body))
}

func (a *API) HandleSignup(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeReply(w, a.Signup(r.Context(), body))
}

func (a *API) HandleLogout(w http.ResponseWriter, r *http.Request) {
	role, ok := roleParam(w, r)
	if !ok {
		return
	}
	writeReply(w, a.Logout(r.Context(), clientID(r), role))
}

// HandleRecords serves op on /api/{role}/{resource}[/{id}].
func (a *API) HandleRecords(op portal.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role, ok := roleParam(w, r)
		if !ok {
			return
		}
		var body []byte
		if op == portal.OpCreate || op == portal.OpUpdate {
			if body, ok = readBody(w, r); !ok {
				return
			}
		}
		writeReply(w, a.Records(r.Context(), clientID(r), role, r.PathValue("resource"), op, r.PathValue("id"), body))
	}
}

func (a *API) HandleWizard(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	if action == "" {
		action = WizardState
	}
	var body []byte
	if r.Method == http.MethodPost {
		var ok bool
		if body, ok = readBody(w, r); !ok {
			return
		}
	}
	writeReply(w, a.Wizard(r.Context(), clientID(r), action, body))
}

func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeReply(w, a.Stats(r.Context(), clientID(r), r.URL.Query().Get("chart") == "true"))
}

func (a *API) HandleCharge(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeReply(w, a.Charge(r.Context(), clientID(r), body))
}

func (a *API) HandleProfile(w http.ResponseWriter, r *http.Request) {
	writeReply(w, a.Profile(r.Context(), clientID(r)))
}

func (a *API) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	writeReply(w, a.SaveProfile(r.Context(), clientID(r), body))
}

func clientID(r *http.Request) string {
	if cookie, err := r.Cookie(ClientCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if id := clientID(r); id != "" {
		return id
	}
	id := NewClientID()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func roleParam(w http.ResponseWriter, r *http.Request) (portal.Role, bool) {
	switch role := portal.Role(r.PathValue("role")); role {
	case portal.RoleAdmin, portal.RoleUser:
		return role, true
	}
	writeReply(w, Reply{Status: http.StatusNotFound, Body: ErrorBody{Message: "Unknown area"}})
	return "", false
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeReply(w, Reply{Status: http.StatusBadRequest, Body: ErrorBody{Message: "Unable to read request body."}})
		return nil, false
	}
	return body, true
}

func writeReply(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.Status)
	_ = json.NewEncoder(w).Encode(reply.Body)
}
