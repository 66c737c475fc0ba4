package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"qrbar/backend"
	"qrbar/models"
)

type SessionState string

const (
	StateUnresolved    SessionState = "unresolved"
	StateResolving     SessionState = "resolving"
	StateGuest         SessionState = "guest"
	StateAuthenticated SessionState = "authenticated"
	StateFailed        SessionState = "failed"
)

const minPasswordLen = 8

// AuthAPI is the part of the backend the session manager talks to.
type AuthAPI interface {
	AutoLogin(ctx context.Context, tableID string) (*models.User, error)
	Login(ctx context.Context, req backend.LoginRequest) (*models.User, error)
	Register(ctx context.Context, req backend.RegisterRequest) (*models.User, error)
	GoogleSignIn(ctx context.Context, credential, tableID string) (*models.User, error)
	CurrentSession(ctx context.Context) (*models.User, error)
	UpdateUser(ctx context.Context, userID int64, fields map[string]interface{}) (*models.User, error)
	Logout(ctx context.Context) error
	AuthConfig(ctx context.Context) (*models.AuthConfig, error)
	StartPasswordReset(ctx context.Context, email string) (*models.EmailAction, error)
	StartEmailVerification(ctx context.Context, email string) (*models.EmailAction, error)
}

type Profile struct {
	Name  string
	Email string
	Phone string
	Age   *int
}

// Session is the identity resolved for one chat at one table.
// UserID is 0 while no identity is resolved.
type Session struct {
	UserID        int64
	Profile       Profile
	EmailVerified bool
	TableID       string
	State         SessionState
	// Err is the last failure of a resolution, revalidation or profile update.
	Err error
}

// Resolved reports whether a guest or authenticated identity is held.
func (s Session) Resolved() bool {
	return s.State == StateGuest || s.State == StateAuthenticated
}

// ErrSessionExpired is recorded when revalidation finds the identity gone.
var ErrSessionExpired = errors.New("session expired")

type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Surname  string
}

// ProfileUpdate carries raw user input; blank fields are not sent.
type ProfileUpdate struct {
	Name  string
	Email string
	Phone string
	Age   string
}

func (u ProfileUpdate) fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if v := strings.TrimSpace(u.Name); v != "" {
		fields["name"] = v
	}
	if v := strings.TrimSpace(u.Email); v != "" {
		fields["email"] = v
	}
	if v := strings.TrimSpace(u.Phone); v != "" {
		fields["phone"] = v
	}
	if v := strings.TrimSpace(u.Age); v != "" {
		if age, err := strconv.Atoi(v); err == nil {
			fields["age"] = age
		}
	}
	return fields
}

// SessionManager drives the identity lifecycle of one (scope, table):
// cache lookup, explicit resolution, periodic revalidation and logout.
type SessionManager struct {
	api      AuthAPI
	cache    IdentityCache
	throttle *LoginThrottle
	scope    string
	tableID  string

	mu           sync.Mutex
	session      Session
	revalidating bool
	onExpire     func()
}

func NewSessionManager(api AuthAPI, cache IdentityCache, throttle *LoginThrottle, scope, tableID string) *SessionManager {
	if cache == nil {
		cache = NewMemoryIdentityCache()
	}
	return &SessionManager{
		api:      api,
		cache:    cache,
		throttle: throttle,
		scope:    scope,
		tableID:  tableID,
		session:  Session{TableID: tableID, State: StateUnresolved},
	}
}

// OnExpire registers fn to run after revalidation drops the session.
func (m *SessionManager) OnExpire(fn func()) {
	m.mu.Lock()
	m.onExpire = fn
	m.mu.Unlock()
}

func (m *SessionManager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *SessionManager) State() SessionState {
	return m.Snapshot().State
}

// CheckoutReady reports whether an order may be tied to the current identity.
func (m *SessionManager) CheckoutReady() bool {
	return m.Snapshot().Resolved()
}

// Init restores the identity for the table. A cached reference is trusted
// without a round trip; otherwise the server session cookie is probed.
func (m *SessionManager) Init(ctx context.Context) error {
	prev, err := m.begin()
	if err != nil {
		return err
	}

	ref, ok, err := m.cache.Get(ctx, m.scope, m.tableID)
	if err != nil {
		log.Warn().Err(err).Str("scope", m.scope).Str("table_id", m.tableID).Msg("identity cache read failed")
	}
	if ok && ref.Kind == StateAuthenticated && !m.holdsCookie() {
		// the server session died with the previous cookie jar
		ok = false
		if err := m.cache.Delete(ctx, m.scope, m.tableID); err != nil {
			log.Warn().Err(err).Str("scope", m.scope).Msg("identity cache delete failed")
		}
		log.Debug().Str("scope", m.scope).Str("table_id", m.tableID).Int64("user_id", ref.UserID).Msg("cached sign-in has no session cookie")
	}
	if ok && ref.UserID != 0 && (ref.Kind == StateGuest || ref.Kind == StateAuthenticated) {
		m.mu.Lock()
		m.session = Session{UserID: ref.UserID, TableID: m.tableID, State: ref.Kind}
		m.mu.Unlock()
		log.Debug().Str("scope", m.scope).Str("table_id", m.tableID).Int64("user_id", ref.UserID).Msg("session restored from cache")
		return nil
	}

	user, err := m.api.CurrentSession(ctx)
	if err != nil {
		m.mu.Lock()
		m.session = Session{TableID: m.tableID, State: StateUnresolved, Err: err}
		m.mu.Unlock()
		log.Warn().Err(err).Str("scope", m.scope).Str("table_id", m.tableID).Msg("session probe failed")
		return err
	}
	if user == nil || user.ID == 0 {
		m.mu.Lock()
		m.session = Session{TableID: m.tableID, State: StateUnresolved}
		m.mu.Unlock()
		return nil
	}
	m.succeed(ctx, user, classify(user), prev)
	return nil
}

// sessionHolder is implemented by APIs that can tell whether they still
// carry a server session cookie.
type sessionHolder interface {
	HasSession() bool
}

// holdsCookie reports false only when the API positively knows it has no
// session cookie.
func (m *SessionManager) holdsCookie() bool {
	h, ok := m.api.(sessionHolder)
	return !ok || h.HasSession()
}

// ContinueAsGuest asks the backend for a guest identity bound to the table.
func (m *SessionManager) ContinueAsGuest(ctx context.Context) error {
	return m.resolve(ctx, func(ctx context.Context) (*models.User, SessionState, error) {
		user, err := m.api.AutoLogin(ctx, m.tableID)
		return user, StateGuest, err
	})
}

func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	if m.throttle != nil {
		if wait := m.throttle.WaitSeconds(m.scope); wait > 0 {
			return &ThrottleError{WaitSeconds: wait}
		}
	}
	return m.resolve(ctx, func(ctx context.Context) (*models.User, SessionState, error) {
		user, err := m.api.Login(ctx, backend.LoginRequest{
			Email:    strings.TrimSpace(email),
			Password: password,
			TableID:  m.tableID,
		})
		m.recordAttempt(err)
		return user, StateAuthenticated, err
	})
}

// Register validates locally before creating the account.
func (m *SessionManager) Register(ctx context.Context, in RegisterInput) error {
	email := strings.TrimSpace(in.Email)
	if email == "" || len(in.Password) < minPasswordLen {
		return ErrInvalidRegistration
	}
	return m.resolve(ctx, func(ctx context.Context) (*models.User, SessionState, error) {
		user, err := m.api.Register(ctx, backend.RegisterRequest{
			Email:    email,
			Password: in.Password,
			Name:     strings.TrimSpace(in.Name),
			Surname:  strings.TrimSpace(in.Surname),
			TableID:  m.tableID,
		})
		return user, StateAuthenticated, err
	})
}

func (m *SessionManager) SignInWithGoogle(ctx context.Context, credential string) error {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return ErrMissingCredential
	}
	return m.resolve(ctx, func(ctx context.Context) (*models.User, SessionState, error) {
		user, err := m.api.GoogleSignIn(ctx, credential, m.tableID)
		return user, StateAuthenticated, err
	})
}

// GoogleEnabled reports whether the backend has a Google client configured.
func (m *SessionManager) GoogleEnabled(ctx context.Context) (bool, error) {
	cfg, err := m.api.AuthConfig(ctx)
	if err != nil {
		return false, err
	}
	return cfg != nil && strings.TrimSpace(cfg.GoogleClientID) != "", nil
}

func (m *SessionManager) recordAttempt(err error) {
	if m.throttle == nil {
		return
	}
	var se *backend.StatusError
	switch {
	case err == nil:
		m.throttle.RecordSuccess(m.scope)
	case errors.As(err, &se):
		m.throttle.RecordFailed(m.scope)
	}
}

type resolveFunc func(ctx context.Context) (*models.User, SessionState, error)

func (m *SessionManager) resolve(ctx context.Context, call resolveFunc) error {
	prev, err := m.begin()
	if err != nil {
		return err
	}
	user, kind, err := call(ctx)
	if err == nil && (user == nil || user.ID == 0) {
		err = errors.New("backend returned no user")
	}
	if err != nil {
		m.fail(prev, err)
		return err
	}
	if kind == StateAuthenticated {
		kind = classify(user)
	}
	m.succeed(ctx, user, kind, prev)
	return nil
}

// begin moves to resolving and returns the state it replaced.
func (m *SessionManager) begin() (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.State == StateResolving {
		return Session{}, ErrResolutionInFlight
	}
	prev := m.session
	m.session.State = StateResolving
	m.session.Err = nil
	return prev, nil
}

func (m *SessionManager) succeed(ctx context.Context, user *models.User, kind SessionState, prev Session) {
	next := sessionFromUser(user, m.tableID, kind)
	m.mu.Lock()
	m.session = next
	m.mu.Unlock()

	if err := m.cache.Put(ctx, m.scope, m.tableID, IdentityRef{UserID: user.ID, Kind: kind, UpdatedAt: time.Now()}); err != nil {
		log.Warn().Err(err).Str("scope", m.scope).Msg("identity cache write failed")
	}
	log.Info().
		Str("scope", m.scope).
		Str("table_id", m.tableID).
		Int64("user_id", user.ID).
		Str("state", string(kind)).
		Str("previous", string(prev.State)).
		Msg("session resolved")
}

// fail keeps a previously resolved identity, with err recorded, instead of
// moving it to failed. Only a session that had no identity ends up failed,
// with no identity fields.
func (m *SessionManager) fail(prev Session, err error) {
	m.mu.Lock()
	if prev.Resolved() {
		prev.Err = err
		m.session = prev
	} else {
		m.session = Session{TableID: m.tableID, State: StateFailed, Err: err}
	}
	state := m.session.State
	m.mu.Unlock()
	log.Warn().Err(err).Str("scope", m.scope).Str("table_id", m.tableID).Str("state", string(state)).Msg("session resolution failed")
}

// Revalidate re-confirms a resolved identity with the server and reports
// whether it is still valid. It does nothing while a resolution is running.
// Transport errors keep the session.
func (m *SessionManager) Revalidate(ctx context.Context) (bool, error) {
	m.mu.Lock()
	cur := m.session
	if !cur.Resolved() || m.revalidating {
		m.mu.Unlock()
		return true, nil
	}
	m.revalidating = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.revalidating = false
		m.mu.Unlock()
	}()

	user, err := m.api.CurrentSession(ctx)
	if err != nil {
		log.Warn().Err(err).Str("scope", m.scope).Msg("session revalidation failed")
		return true, err
	}

	valid := true
	switch {
	case user == nil || user.ID == 0:
		valid = cur.State == StateGuest
	case user.ID != cur.UserID:
		valid = false
	}

	m.mu.Lock()
	if m.session.State != cur.State || m.session.UserID != cur.UserID {
		// a resolution or logout happened meanwhile; its result wins
		m.mu.Unlock()
		return true, nil
	}
	if valid {
		if user != nil && user.ID == cur.UserID {
			m.session.Profile = profileOf(user)
			m.session.EmailVerified = user.IsVerified()
		}
		m.mu.Unlock()
		return true, nil
	}
	m.session = Session{TableID: m.tableID, State: StateUnresolved, Err: ErrSessionExpired}
	onExpire := m.onExpire
	m.mu.Unlock()

	if err := m.cache.Delete(ctx, m.scope, m.tableID); err != nil {
		log.Warn().Err(err).Str("scope", m.scope).Msg("identity cache delete failed")
	}
	log.Info().Str("scope", m.scope).Str("table_id", m.tableID).Int64("user_id", cur.UserID).Msg("session expired")
	if onExpire != nil {
		onExpire()
	}
	return false, nil
}

// StartRevalidation revalidates every interval until ctx is done.
func (m *SessionManager) StartRevalidation(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = m.Revalidate(ctx)
			}
		}
	}()
}

// Focus is called when the customer comes back after a pause.
func (m *SessionManager) Focus(ctx context.Context) {
	_, _ = m.Revalidate(ctx)
}

// UpdateProfile sends the non-blank fields of upd for the current user.
func (m *SessionManager) UpdateProfile(ctx context.Context, upd ProfileUpdate) error {
	fields := upd.fields()
	if len(fields) == 0 {
		return ErrEmptyProfileUpdate
	}
	cur := m.Snapshot()
	if !cur.Resolved() {
		return ErrSessionNotReady
	}

	user, err := m.api.UpdateUser(ctx, cur.UserID, fields)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.UserID != cur.UserID || !m.session.Resolved() {
		if err != nil {
			return err
		}
		return ErrSessionNotReady
	}
	if err != nil {
		m.session.Err = err
		return err
	}
	m.session.Err = nil
	if user != nil {
		m.session.Profile = profileOf(user)
		m.session.EmailVerified = user.IsVerified()
	}
	return nil
}

// Logout ends the server session and forgets the identity whatever the
// server answers.
func (m *SessionManager) Logout(ctx context.Context) error {
	cur := m.Snapshot()
	var err error
	if cur.Resolved() {
		if err = m.api.Logout(ctx); err != nil {
			log.Warn().Err(err).Str("scope", m.scope).Msg("logout request failed")
		}
	}

	m.mu.Lock()
	if m.session.State != StateResolving {
		m.session = Session{TableID: m.tableID, State: StateUnresolved}
	}
	m.mu.Unlock()

	if cerr := m.cache.Delete(ctx, m.scope, m.tableID); cerr != nil {
		log.Warn().Err(cerr).Str("scope", m.scope).Msg("identity cache delete failed")
	}
	return err
}

func (m *SessionManager) RequestPasswordReset(ctx context.Context, email string) (*models.EmailAction, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	return m.api.StartPasswordReset(ctx, email)
}

func (m *SessionManager) RequestEmailVerification(ctx context.Context, email string) (*models.EmailAction, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		email = m.Snapshot().Profile.Email
	}
	if email == "" {
		return nil, ErrMissingEmail
	}
	return m.api.StartEmailVerification(ctx, email)
}

// classify treats a user record with an email as a registered account.
func classify(u *models.User) SessionState {
	if strings.TrimSpace(u.Email) != "" {
		return StateAuthenticated
	}
	return StateGuest
}

func profileOf(u *models.User) Profile {
	return Profile{Name: u.Name, Email: u.Email, Phone: u.Phone, Age: u.Age}
}

func sessionFromUser(u *models.User, tableID string, kind SessionState) Session {
	return Session{
		UserID:        u.ID,
		Profile:       profileOf(u),
		EmailVerified: u.IsVerified(),
		TableID:       tableID,
		State:         kind,
	}
}
