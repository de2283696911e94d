package state

import (
	"strings"

	"github.com/Eblazecode/Agrolinkernew/internal/catalog"
)

const (
	// RegistrationBalance is the starting wallet of a self-registered user.
	RegistrationBalance int64 = 100000
	// MinPasswordLength applies to registration.
	MinPasswordLength = 8
)

// Login authenticates against the catalog's demo accounts by exact email
// match. Unless Env.StrictPasswords is set, any non-empty password passes;
// this mirrors the demo fixtures and is not a credential check.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (Login) Kind() string { return "session.login" }

func (in Login) apply(t *tx) error {
	var f fieldErrors
	f.require("email", in.Email)
	f.require("password", in.Password)
	if err := f.err(); err != nil {
		return err
	}

	rec, ok := t.env.Catalog.UserByEmail(in.Email)
	if !ok {
		return fail(ErrInvalidCredentials, map[string]any{"email": in.Email})
	}
	if t.env.StrictPasswords && rec.Password != in.Password {
		return fail(ErrInvalidCredentials, map[string]any{"email": in.Email})
	}

	t.s.User = &User{
		ID:            rec.ID,
		Name:          rec.Name,
		Email:         rec.Email,
		Role:          rec.Role,
		WalletBalance: rec.WalletBalance,
		Verified:      rec.Verified,
	}
	t.s.Wallet = rec.WalletBalance
	t.emit("session.logged_in", map[string]any{"user_id": rec.ID, "role": string(rec.Role)})
	t.push("Welcome back, " + rec.Name + "!")
	return nil
}

// Register creates a session-local account and signs it in. Admin accounts
// cannot be self-registered.
type Register struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Password string       `json:"password"`
	Role     catalog.Role `json:"role"`
}

func (Register) Kind() string { return "session.register" }

func (in Register) apply(t *tx) error {
	var f fieldErrors
	f.require("name", in.Name)
	f.email("email", in.Email)
	f.check("password", len(in.Password) >= MinPasswordLength)
	f.check("role", in.Role.Valid() && in.Role != catalog.RoleAdmin)
	if err := f.err(); err != nil {
		return err
	}

	u := &User{
		ID:            t.nextID("usr"),
		Name:          strings.TrimSpace(in.Name),
		Email:         strings.TrimSpace(in.Email),
		Role:          in.Role,
		WalletBalance: RegistrationBalance,
	}
	t.s.User = u
	t.s.Wallet = RegistrationBalance
	t.emit("session.registered", map[string]any{"user_id": u.ID, "role": string(u.Role)})
	t.push("Welcome to AgroLinker, " + u.Name + "!")
	return nil
}

// Logout ends the session: the user is cleared, the wallet drops to zero and
// the investment ledger and other session-scoped records are discarded. The
// cart and notification feed survive.
type Logout struct{}

func (Logout) Kind() string { return "session.logout" }

func (Logout) apply(t *tx) error {
	if t.s.User == nil {
		return nil
	}
	userID := t.s.User.ID
	t.s.User = nil
	t.s.Wallet = 0
	t.s.Investments = nil
	t.s.Orders = nil
	t.s.Bookings = nil
	t.s.Shipments = nil
	t.s.Contracts = nil
	t.s.FundingRequests = nil
	t.emit("session.logged_out", map[string]any{"user_id": userID})
	return nil
}
