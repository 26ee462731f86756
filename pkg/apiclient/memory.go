package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	portal "github.com/goliatone/go-insurance/components/portal"
)

// Account is a login known to the in-memory API.
type Account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

// MemoryOptions seeds the in-memory API.
type MemoryOptions struct {
	Accounts []Account
	// PaymentLimit declines charges above the amount when positive.
	PaymentLimit float64
	Now          func() time.Time
}

// Memory is an in-process implementation of the insurance REST API. It backs
// local demos and tests that exercise the real client end to end.
type Memory struct {
	mu           sync.RWMutex
	collections  map[string]*collection
	accounts     map[string]Account
	paymentLimit float64
	now          func() time.Time
	mux          *http.ServeMux
}

type collection struct {
	order   []string
	records map[string]map[string]any
}

// NewMemory builds an empty API with the given accounts.
func NewMemory(opts MemoryOptions) *Memory {
	m := &Memory{
		collections:  make(map[string]*collection),
		accounts:     make(map[string]Account),
		paymentLimit: opts.PaymentLimit,
		now:          opts.Now,
	}
	if m.now == nil {
		m.now = time.Now
	}
	for _, def := range portal.Resources() {
		m.collections[def.Name] = &collection{records: make(map[string]map[string]any)}
	}
	for _, account := range opts.Accounts {
		if account.ID == "" {
			account.ID = uuid.NewString()
		}
		m.accounts[strings.ToLower(account.Email)] = account
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", m.login)
	mux.HandleFunc("POST /api/auth/signup", m.signup)
	mux.HandleFunc("GET /api/auth/verify", m.verify)
	mux.HandleFunc("POST /api/payments/charge", m.charge)
	mux.HandleFunc("GET /api/{resource}/getall", m.list)
	mux.HandleFunc("GET /api/{resource}/{id}", m.get)
	mux.HandleFunc("POST /api/{resource}/create", m.create)
	mux.HandleFunc("PUT /api/{resource}/update/{id}", m.update)
	mux.HandleFunc("DELETE /api/{resource}/delete/{id}", m.remove)
	m.mux = mux
	return m
}

// PaymentEndpoint is the charge path served by Memory.
const PaymentEndpoint = "/api/payments/charge"

func (m *Memory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mux.ServeHTTP(w, r)
}

// Seed stores records as if they had been created through the API. Records
// without an id get one.
func (m *Memory) Seed(resource string, records ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collections[resource]
	if !ok {
		return fmt.Errorf("apiclient: unknown resource %q", resource)
	}
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("apiclient: encode seed %s: %w", resource, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("apiclient: decode seed %s: %w", resource, err)
		}
		id, _ := doc["_id"].(string)
		if id == "" {
			id = uuid.NewString()
			doc["_id"] = id
		}
		if _, exists := coll.records[id]; !exists {
			coll.order = append(coll.order, id)
		}
		coll.records[id] = doc
	}
	return nil
}

// Len reports how many records a collection holds.
func (m *Memory) Len(resource string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if coll, ok := m.collections[resource]; ok {
		return len(coll.order)
	}
	return 0
}

func (m *Memory) list(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collection(w, r)
	if !ok {
		return
	}
	out := make([]map[string]any, 0, len(coll.order))
	for _, id := range coll.order {
		out = append(out, coll.records[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (m *Memory) get(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	coll, ok := m.collection(w, r)
	if !ok {
		return
	}
	doc, ok := coll.records[r.PathValue("id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Record not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (m *Memory) create(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collection(w, r)
	if !ok {
		return
	}
	resource := r.PathValue("resource")
	id := uuid.NewString()
	doc["_id"] = id
	now := m.now().UTC().Format(time.RFC3339)
	switch resource {
	case portal.ResourceQuotes:
		setDefault(doc, "status", string(portal.QuotePending))
		doc["createdAt"], doc["updatedAt"] = now, now
	case portal.ResourceTickets:
		setDefault(doc, "status", string(portal.TicketOpen))
		doc["createdAt"], doc["updatedAt"] = now, now
	case portal.ResourceUsers:
		setDefault(doc, "status", string(portal.UserActive))
		setDefault(doc, "dateCreated", now)
	}
	coll.order = append(coll.order, id)
	coll.records[id] = doc
	writeJSON(w, http.StatusCreated, doc)
}

func (m *Memory) update(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collection(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	doc, ok := coll.records[id]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Record not found")
		return
	}
	for key, value := range patch {
		if key == "_id" || isZero(value) {
			continue
		}
		doc[key] = value
	}
	if _, tracked := doc["updatedAt"]; tracked {
		doc["updatedAt"] = m.now().UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, doc)
}

func (m *Memory) remove(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coll, ok := m.collection(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if _, ok := coll.records[id]; !ok {
		writeMessage(w, http.StatusNotFound, "Record not found")
		return
	}
	delete(coll.records, id)
	coll.order = slices.DeleteFunc(coll.order, func(other string) bool { return other == id })
	writeMessage(w, http.StatusOK, "Deleted")
}

func (m *Memory) login(w http.ResponseWriter, r *http.Request) {
	var creds portal.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	m.mu.RLock()
	account, ok := m.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	m.mu.RUnlock()
	if !ok || account.Password != creds.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	writeJSON(w, http.StatusOK, portal.LoginResult{ID: account.ID, Name: account.Name, Role: account.Role})
}

func (m *Memory) signup(w http.ResponseWriter, r *http.Request) {
	var form portal.SignupForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if form.Name == "" || form.Email == "" || form.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	key := strings.ToLower(strings.TrimSpace(form.Email))
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[key]; exists {
		writeMessage(w, http.StatusConflict, "Email already registered")
		return
	}
	role := form.Role
	if role == "" {
		role = "User"
	}
	m.accounts[key] = Account{ID: uuid.NewString(), Name: form.Name, Email: form.Email, Password: form.Password, Role: role}
	writeMessage(w, http.StatusCreated, "Account created")
}

func (m *Memory) verify(w http.ResponseWriter, r *http.Request) {
	subject := r.URL.Query().Get("subject")
	if subject == "" {
		writeMessage(w, http.StatusOK, "ok")
		return
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if account.ID == subject {
			writeMessage(w, http.StatusOK, "ok")
			return
		}
	}
	writeMessage(w, http.StatusUnauthorized, "Session revoked")
}

func (m *Memory) charge(w http.ResponseWriter, r *http.Request) {
	var req portal.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Amount <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid payment request")
		return
	}
	if m.paymentLimit > 0 && req.Amount > m.paymentLimit {
		writeJSON(w, http.StatusOK, portal.PaymentResult{Message: "Payment declined: amount exceeds limit"})
		return
	}
	writeJSON(w, http.StatusOK, portal.PaymentResult{
		Success: true,
		Message: "Payment of " + portal.FormatMoney(req.Amount) + " received",
	})
}

func (m *Memory) collection(w http.ResponseWriter, r *http.Request) (*collection, bool) {
	coll, ok := m.collections[r.PathValue("resource")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Unknown resource")
	}
	return coll, ok
}

func decodeDocument(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil || doc == nil {
		writeMessage(w, http.StatusBadRequest, "Invalid payload")
		return nil, false
	}
	return doc, true
}

func setDefault(doc map[string]any, key string, value any) {
	if isZero(doc[key]) {
		doc[key] = value
	}
}

func isZero(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
