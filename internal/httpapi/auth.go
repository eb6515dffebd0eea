package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
)

const (
	roleAdmin   = "admin"
	roleCashier = "cashier"

	sessionIssuer = "catatkas"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errAccountInactive    = errors.New("account is inactive")
	errUsernameTaken      = errors.New("username already exists")
	errInvalidSession     = errors.New("invalid or expired token")
)

// UserStore is the slice of the repository that holds login accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

// AuthManager signs in accounts from a UserStore and issues HS256 session
// tokens whose subject is the username. The username doubles as the owner id
// of everything the session writes.
type AuthManager struct {
	accounts *accountDirectory
	sessions sessionSigner
}

func NewAuthManager(ctx context.Context, secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}

	manager := &AuthManager{
		accounts: &accountDirectory{store: users, byName: make(map[string]domain.UserAccount)},
		sessions: sessionSigner{key: []byte(secret), ttl: tokenTTL},
	}
	manager.accounts.reload(ctx)
	return manager
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	a.accounts.reload(ctx)

	account, ok := a.accounts.find(req.Username)
	if !ok {
		// Burn a comparison so unknown names cost the same as wrong passwords.
		_ = bcrypt.CompareHashAndPassword(decoyHash(), []byte(req.Password))
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !passwordMatches(account.Password, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !account.Active {
		return domain.LoginResponse{}, errAccountInactive
	}

	expiresAt := time.Now().UTC().Add(a.sessions.ttl)
	token, err := a.sessions.issue(account.Username, account.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        account.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(raw string) (domain.Actor, error) {
	return a.sessions.verify(raw)
}

func (a *AuthManager) CreateCashier(ctx context.Context, req domain.CashierCreateRequest) (domain.CashierUser, error) {
	account, err := newCashierAccount(req, time.Now().UTC())
	if err != nil {
		return domain.CashierUser{}, err
	}

	a.accounts.reload(ctx)
	if _, taken := a.accounts.find(account.Username); taken {
		return domain.CashierUser{}, errUsernameTaken
	}
	if a.accounts.store != nil {
		if err := a.accounts.store.CreateUser(ctx, account); err != nil {
			if errors.Is(err, store.ErrInvalidRecord) {
				return domain.CashierUser{}, errUsernameTaken
			}
			return domain.CashierUser{}, err
		}
	}
	a.accounts.remember(account)
	return cashierView(account), nil
}

func (a *AuthManager) ListCashiers(ctx context.Context) []domain.CashierUser {
	a.accounts.reload(ctx)
	accounts := a.accounts.withRole(roleCashier)
	out := make([]domain.CashierUser, len(accounts))
	for i, account := range accounts {
		out[i] = cashierView(account)
	}
	return out
}

// newCashierAccount validates the request and returns the account to persist,
// password already hashed.
func newCashierAccount(req domain.CashierCreateRequest, now time.Time) (domain.UserAccount, error) {
	username := normalizeUsername(req.Username)
	switch {
	case len(username) < 4:
		return domain.UserAccount{}, fmt.Errorf("username must be at least 4 characters")
	case strings.ContainsAny(username, " \t\r\n"):
		return domain.UserAccount{}, fmt.Errorf("username must not contain spaces")
	case len(strings.TrimSpace(req.Password)) < 6:
		return domain.UserAccount{}, fmt.Errorf("password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserAccount{}, fmt.Errorf("hash password: %w", err)
	}
	return domain.UserAccount{
		Username:  username,
		Password:  string(hash),
		Role:      roleCashier,
		Active:    true,
		CreatedAt: now,
	}, nil
}

func cashierView(account domain.UserAccount) domain.CashierUser {
	return domain.CashierUser{
		Username:  account.Username,
		Role:      account.Role,
		Active:    account.Active,
		CreatedAt: account.CreatedAt,
	}
}

func normalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// accountDirectory mirrors the store's accounts keyed by normalized username.
// A failed reload keeps the last good copy.
type accountDirectory struct {
	store UserStore

	mu     sync.RWMutex
	byName map[string]domain.UserAccount
}

func (d *accountDirectory) reload(ctx context.Context) {
	if d.store == nil {
		return
	}
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		log.Printf("[auth] WARN: reload accounts: %v", err)
		return
	}

	fresh := make(map[string]domain.UserAccount, len(users))
	for _, user := range users {
		user.Username = normalizeUsername(user.Username)
		if user.Username == "" {
			continue
		}
		user.Password = d.sealLegacyPassword(ctx, user)
		fresh[user.Username] = user
	}

	d.mu.Lock()
	d.byName = fresh
	d.mu.Unlock()
}

// sealLegacyPassword hashes a plain-text password left by older seeds and
// writes the hash back. A failed write-back still lets the account sign in;
// the next reload retries it.
func (d *accountDirectory) sealLegacyPassword(ctx context.Context, user domain.UserAccount) string {
	if user.Password == "" || isBcryptHash(user.Password) {
		return user.Password
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[auth] WARN: hash legacy password for %s: %v", user.Username, err)
		return user.Password
	}
	if err := d.store.UpdateUserPassword(ctx, user.Username, string(hash)); err != nil {
		log.Printf("[auth] WARN: store upgraded password for %s: %v", user.Username, err)
	}
	return string(hash)
}

func (d *accountDirectory) find(name string) (domain.UserAccount, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	account, ok := d.byName[normalizeUsername(name)]
	return account, ok
}

func (d *accountDirectory) remember(account domain.UserAccount) {
	d.mu.Lock()
	d.byName[account.Username] = account
	d.mu.Unlock()
}

func (d *accountDirectory) withRole(role string) []domain.UserAccount {
	d.mu.RLock()
	out := make([]domain.UserAccount, 0, len(d.byName))
	for _, account := range d.byName {
		if account.Role == role {
			out = append(out, account)
		}
	}
	d.mu.RUnlock()

	slices.SortFunc(out, func(x, y domain.UserAccount) int {
		return strings.Compare(x.Username, y.Username)
	})
	return out
}

// passwordMatches only accepts bcrypt hashes; plain values never match even
// when equal to the input.
func passwordMatches(stored string, input string) bool {
	if strings.TrimSpace(input) == "" || !isBcryptHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func isBcryptHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}

var decoyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("decoy-password"), bcrypt.DefaultCost)
	return hash
})

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

type sessionSigner struct {
	key []byte
	ttl time.Duration
}

func (s sessionSigner) issue(subject string, role string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			Issuer:    sessionIssuer,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.key)
}

func (s sessionSigner) verify(raw string) (domain.Actor, error) {
	claims := &sessionClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return s.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(sessionIssuer),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Actor{}, errInvalidSession
	}
	if claims.Subject == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}
