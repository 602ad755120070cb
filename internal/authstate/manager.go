package authstate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fitloop/backend-auth/internal/domain"
	"github.com/fitloop/backend-auth/internal/provider"
	"github.com/fitloop/backend-auth/pkg/logger"
)

// Manager maintains a single observable AuthState for the application,
// re-deriving role and profile whenever the underlying session changes.
// Construct one per application and Close it on teardown; there are no
// package-level globals.
type Manager struct {
	provider provider.Provider
	log      *logger.Logger

	mu    sync.RWMutex
	state domain.AuthState

	// Monotonic resolution token. A resolution result is committed only if
	// its token is still the latest issued, so a slow lookup triggered by an
	// older session change can never overwrite a newer one.
	resToken uint64

	events      <-chan domain.AuthEvent
	unsubscribe func()
	done        chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan domain.AuthState
	nextSub int
	closed  bool
}

// NewManager creates a Manager, attaches the auth-change listener and seeds
// the state from the current session. The listener is attached before the
// seed fetch so an event firing in between is never lost.
func NewManager(ctx context.Context, p provider.Provider) *Manager {
	m := &Manager{
		provider: p,
		log:      logger.Get(),
		state:    domain.AuthState{IsLoading: true},
		done:     make(chan struct{}),
		subs:     make(map[int]chan domain.AuthState),
	}

	m.events, m.unsubscribe = p.Events().Subscribe()
	go m.run()

	// Seed without waiting for an event
	go m.seed(ctx)

	return m
}

// State returns a snapshot of the current AuthState
func (m *Manager) State() domain.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel receiving every published AuthState and a
// cancel function releasing it. Slow consumers drop updates rather than
// blocking the manager.
func (m *Manager) Subscribe() (<-chan domain.AuthState, func()) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan domain.AuthState, 16)
	m.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.subMu.Lock()
			defer m.subMu.Unlock()
			if _, ok := m.subs[id]; ok {
				delete(m.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close releases the provider subscription and stops the event loop
func (m *Manager) Close() {
	m.unsubscribe()
	<-m.done

	m.subMu.Lock()
	defer m.subMu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
}

// SignUp registers a new account. The provider publishes the sign-in event
// that drives the state transition; no role is assigned here.
func (m *Manager) SignUp(ctx context.Context, email, password, fullName string) error {
	_, err := m.provider.SignUp(ctx, email, password, fullName)
	return err
}

// SignIn authenticates with email and password
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	_, err := m.provider.SignInWithPassword(ctx, email, password)
	return err
}

// SignOut clears the session
func (m *Manager) SignOut(ctx context.Context) error {
	return m.provider.SignOut(ctx)
}

// RequestPasswordReset triggers the out-of-band email flow. No local state
// change.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	return m.provider.ResetPasswordForEmail(ctx, email)
}

// UpdatePassword changes the password for the active session, failing with
// ErrUnauthenticated when there is none
func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	return m.provider.UpdatePassword(ctx, newPassword)
}

// AssignRole assigns a role through the privileged service. A successful
// assignment to the caller's own identity forces a role re-resolution so the
// state reflects the new role without a full session refresh.
func (m *Manager) AssignRole(ctx context.Context, role domain.Role, targetUserID string) error {
	assigned, err := m.provider.AssignRole(ctx, role, targetUserID)
	if err != nil {
		return err
	}

	m.mu.RLock()
	user := m.state.User
	session := m.state.Session
	m.mu.RUnlock()

	if user != nil && (targetUserID == "" || targetUserID == user.ID) {
		m.log.Info("role assigned, re-resolving state",
			logger.String("user_id", user.ID),
			logger.String("role", string(assigned)),
		)
		m.resolve(ctx, user, session)
	}
	return nil
}

// run consumes provider auth-change events until the subscription closes
func (m *Manager) run() {
	defer close(m.done)

	for event := range m.events {
		switch event.Type {
		case domain.EventSignedOut:
			m.setUnauthenticated()
		case domain.EventSignedIn, domain.EventTokenRefreshed, domain.EventPasswordUpdated:
			if event.User == nil {
				m.setUnauthenticated()
				continue
			}
			m.resolve(context.Background(), event.User, event.Session)
		}
	}
}

// seed performs the one-off current-session fetch that resolves the initial
// Initializing state. The token is issued before the fetch, so a sign-in
// event that arrives while the fetch is in flight outranks it and a slow
// seed response can never overwrite the newer state.
func (m *Manager) seed(ctx context.Context) {
	token := m.nextToken()

	user, session, err := m.provider.GetSession(ctx)
	if err != nil {
		m.log.Warn("session seed failed", logger.Err(err))
		m.publish(token, domain.AuthState{IsLoading: false})
		return
	}
	if user == nil {
		m.publish(token, domain.AuthState{IsLoading: false})
		return
	}
	m.resolveWith(ctx, token, user, session)
}

// resolve issues a new resolution token for an auth-change event and kicks
// off the lookups
func (m *Manager) resolve(ctx context.Context, user *domain.User, session *domain.Session) {
	m.resolveWith(ctx, m.nextToken(), user, session)
}

// resolveWith marks the state as loading under the given token and looks up
// role and profile asynchronously. Lookup errors degrade to absent: a
// missing role routes to onboarding, never to an error screen.
func (m *Manager) resolveWith(ctx context.Context, token uint64, user *domain.User, session *domain.Session) {
	m.publish(token, domain.AuthState{
		User:      user,
		Session:   session,
		IsLoading: true,
	})

	go func() {
		role, err := m.provider.ResolveRole(ctx, user.ID)
		if err != nil {
			m.log.Warn("role resolution failed, treating as unassigned",
				logger.String("user_id", user.ID),
				logger.Err(err),
			)
			role = domain.RoleNone
		}

		profile, err := m.provider.GetProfile(ctx, user.ID)
		if err != nil {
			m.log.Warn("profile resolution failed, treating as absent",
				logger.String("user_id", user.ID),
				logger.Err(err),
			)
			profile = nil
		}

		m.publish(token, domain.AuthState{
			User:      user,
			Session:   session,
			Role:      role,
			Profile:   profile,
			IsLoading: false,
		})
	}()
}

// setUnauthenticated publishes the signed-out state immediately, no lookups
func (m *Manager) setUnauthenticated() {
	m.publish(m.nextToken(), domain.AuthState{IsLoading: false})
}

// nextToken issues the next resolution token. Tokens are issued at trigger
// time, not completion time, so ordering follows the triggers.
func (m *Manager) nextToken() uint64 {
	return atomic.AddUint64(&m.resToken, 1)
}

// publish commits a state if its token is still the latest issued
// (last-triggered-wins) and fans it out to subscribers
func (m *Manager) publish(token uint64, state domain.AuthState) {
	if atomic.LoadUint64(&m.resToken) != token {
		return
	}

	m.mu.Lock()
	if atomic.LoadUint64(&m.resToken) != token {
		m.mu.Unlock()
		return
	}
	m.state = state
	m.mu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- state:
		default:
		}
	}
}
