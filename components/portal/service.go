package portal

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// APIClients bundles the API surfaces the portal depends on.
type APIClients struct {
	Users        ResourceClient[User]
	Policies     ResourceClient[Policy]
	Quotes       ResourceClient[Quote]
	Tickets      ResourceClient[Ticket]
	Transactions ResourceClient[Transaction]
	Reports      ResourceClient[Report]
	Auth         Authenticator
	Verifier     SessionVerifier
	Payments     PaymentGateway
}

func (c APIClients) validate() error {
	switch {
	case c.Users == nil, c.Policies == nil, c.Quotes == nil, c.Tickets == nil,
		c.Transactions == nil, c.Reports == nil:
		return errors.New("portal: every resource client is required")
	case c.Auth == nil:
		return errors.New("portal: auth client is required")
	}
	return nil
}

// Options configures the portal service.
type Options struct {
	API               APIClients
	Storage           StorageProvider
	Sessions          *SessionManager
	Changes           ChangeHook
	Activity          ActivityRecorder
	Telemetry         Telemetry
	ChartCache        RenderCache
	ChartTheme        string
	PersistQuoteDraft bool
}

// Service owns the per-client workspaces and the shared auth, stats and
// payment services.
type Service struct {
	opts     Options
	auth     *AuthService
	stats    *StatsService
	payments *PaymentService

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewService validates options and builds the shared services.
func NewService(opts Options) (*Service, error) {
	if err := opts.API.validate(); err != nil {
		return nil, err
	}
	if opts.Sessions == nil {
		return nil, errors.New("portal: session manager is required")
	}
	if opts.Storage == nil {
		opts.Storage = NewInMemoryStorage()
	}
	if opts.Changes == nil {
		opts.Changes = noopChangeHook{}
	}
	if opts.Activity == nil {
		opts.Activity = noopActivity{}
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)

	auth, err := NewAuthService(opts.API.Auth, opts.Sessions, opts.Telemetry)
	if err != nil {
		return nil, err
	}
	stats, err := NewStatsService(StatsOptions{
		Users:     opts.API.Users,
		Quotes:    opts.API.Quotes,
		Policies:  opts.API.Policies,
		Tickets:   opts.API.Tickets,
		Cache:     opts.ChartCache,
		Theme:     opts.ChartTheme,
		Telemetry: opts.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	svc := &Service{
		opts:       opts,
		auth:       auth,
		stats:      stats,
		workspaces: make(map[string]*Workspace),
	}
	if opts.API.Payments != nil {
		svc.payments, err = NewPaymentService(opts.API.Payments, opts.Telemetry)
		if err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func (s *Service) Auth() *AuthService { return s.auth }

func (s *Service) Stats() *StatsService { return s.stats }

// Payments returns nil when no gateway is configured.
func (s *Service) Payments() *PaymentService { return s.payments }

// Storage returns the storage namespace of clientID.
func (s *Service) Storage(clientID string) Storage {
	return s.opts.Storage.ForClient(clientID)
}

// Gate builds the gate for role.
func (s *Service) Gate(role Role) Gate {
	return Gate{Role: role, Sessions: s.opts.Sessions, Verifier: s.opts.API.Verifier}
}

// Authorize checks role's gate for clientID and returns the session and
// workspace. The returned context carries the acting session.
func (s *Service) Authorize(ctx context.Context, clientID string, role Role) (context.Context, Session, *Workspace, error) {
	session, err := s.Gate(role).Check(ctx, s.Storage(clientID))
	if err != nil {
		return ctx, Session{}, nil, err
	}
	ws, err := s.Workspace(ctx, clientID)
	if err != nil {
		return ctx, Session{}, nil, err
	}
	ctx = ContextWithActor(ctx, Actor{
		ID:       session.Subject,
		Name:     session.Name,
		Role:     session.Role,
		ClientID: clientID,
	})
	return ctx, session, ws, nil
}

// Login authenticates and stores the session for clientID.
func (s *Service) Login(ctx context.Context, clientID string, creds Credentials) (Session, string, error) {
	return s.auth.Login(ctx, s.Storage(clientID), creds)
}

// Logout ends role's session for clientID. The workspace is closed once the
// client holds no session at all.
func (s *Service) Logout(ctx context.Context, clientID string, role Role) (string, error) {
	store := s.Storage(clientID)
	redirect, err := s.auth.Logout(ctx, store, role)
	if err != nil {
		return "", err
	}
	_, adminOK, _ := store.Get(ctx, StorageKeyAdminAuthenticated)
	_, userOK, _ := store.Get(ctx, StorageKeyUserAuthenticated)
	if !adminOK && !userOK {
		s.CloseWorkspace(clientID)
	}
	return redirect, nil
}

// Workspace returns the live workspace of clientID, creating it on first use.
func (s *Service) Workspace(ctx context.Context, clientID string) (*Workspace, error) {
	if clientID == "" {
		return nil, errors.New("portal: client id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.workspaces[clientID]; ok {
		return ws, nil
	}
	ws, err := s.newWorkspace(ctx, clientID)
	if err != nil {
		return nil, err
	}
	s.workspaces[clientID] = ws
	return ws, nil
}

// CloseWorkspace closes and forgets the workspace of clientID.
func (s *Service) CloseWorkspace(clientID string) {
	s.mu.Lock()
	ws, ok := s.workspaces[clientID]
	delete(s.workspaces, clientID)
	s.mu.Unlock()
	if ok {
		ws.Close()
	}
}

// Close closes every workspace.
func (s *Service) Close() {
	s.mu.Lock()
	all := s.workspaces
	s.workspaces = make(map[string]*Workspace)
	s.mu.Unlock()
	for _, ws := range all {
		ws.Close()
	}
}

func (s *Service) newWorkspace(ctx context.Context, clientID string) (*Workspace, error) {
	store := s.Storage(clientID)
	ws := &Workspace{
		ClientID: clientID,
		Storage:  store,
		Profile:  NewProfileProvider(ctx, store),
		svc:      s,
	}
	var err error
	if ws.Users, err = newController[User, UserForm](s, ResourceUsers, s.opts.API.Users); err != nil {
		return nil, err
	}
	if ws.Policies, err = newController[Policy, PolicyForm](s, ResourcePolicies, s.opts.API.Policies); err != nil {
		return nil, err
	}
	if ws.Quotes, err = newController[Quote, QuoteStatusForm](s, ResourceQuotes, s.opts.API.Quotes); err != nil {
		return nil, err
	}
	if ws.Tickets, err = newController[Ticket, TicketForm](s, ResourceTickets, s.opts.API.Tickets); err != nil {
		return nil, err
	}
	if ws.Transactions, err = newController[Transaction, TransactionForm](s, ResourceTransactions, s.opts.API.Transactions); err != nil {
		return nil, err
	}
	if ws.Reports, err = newController[Report, ReportForm](s, ResourceReports, s.opts.API.Reports); err != nil {
		return nil, err
	}
	return ws, nil
}

func newController[T Record, F Form[T]](s *Service, resource string, client ResourceClient[T]) (*ResourceController[T, F], error) {
	return NewResourceController[T, F](ControllerOptions[T]{
		Resource:  resource,
		Client:    client,
		Changes:   s.opts.Changes,
		Activity:  s.opts.Activity,
		Telemetry: s.opts.Telemetry,
	})
}

// Workspace groups the views of one client.
type Workspace struct {
	ClientID     string
	Storage      Storage
	Profile      *ProfileProvider
	Users        *ResourceController[User, UserForm]
	Policies     *ResourceController[Policy, PolicyForm]
	Quotes       *ResourceController[Quote, QuoteStatusForm]
	Tickets      *ResourceController[Ticket, TicketForm]
	Transactions *ResourceController[Transaction, TransactionForm]
	Reports      *ResourceController[Report, ReportForm]

	svc    *Service
	mu     sync.Mutex
	wizard *QuoteWizard
}

// Wizard returns the client's quote wizard, creating it on first use.
func (w *Workspace) Wizard(ctx context.Context) (*QuoteWizard, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wizard != nil {
		return w.wizard, nil
	}
	opts := WizardOptions{
		Creator:   w.Quotes.client,
		Changes:   w.svc.opts.Changes,
		Activity:  w.svc.opts.Activity,
		Telemetry: w.svc.opts.Telemetry,
	}
	if w.svc.opts.PersistQuoteDraft {
		opts.Storage = w.Storage
	}
	wizard, err := NewQuoteWizard(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("portal: start quote wizard: %w", err)
	}
	w.wizard = wizard
	return wizard, nil
}

// Close closes every resource view of the workspace.
func (w *Workspace) Close() {
	w.Users.Close()
	w.Policies.Close()
	w.Quotes.Close()
	w.Tickets.Close()
	w.Transactions.Close()
	w.Reports.Close()
}

// SelectUsers and its siblings pick one resource controller out of a workspace.
func SelectUsers(ws *Workspace) *ResourceController[User, UserForm] {
	return ws.Users
}

func SelectPolicies(ws *Workspace) *ResourceController[Policy, PolicyForm] {
	return ws.Policies
}

func SelectQuotes(ws *Workspace) *ResourceController[Quote, QuoteStatusForm] {
	return ws.Quotes
}

func SelectTickets(ws *Workspace) *ResourceController[Ticket, TicketForm] {
	return ws.Tickets
}

func SelectTransactions(ws *Workspace) *ResourceController[Transaction, TransactionForm] {
	return ws.Transactions
}

func SelectReports(ws *Workspace) *ResourceController[Report, ReportForm] {
	return ws.Reports
}
