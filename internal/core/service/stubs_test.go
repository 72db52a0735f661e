package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/insurex/insurance-auth/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	seq    int
	saves  int
	findFn func(email string) error
	// updateErr, when set, fails every UpdatePassword call.
	updateErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findFn != nil {
		if err := r.findFn(email); err != nil {
			return nil, err
		}
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	r.seq++
	r.saves++
	c := cloneUser(user)
	c.ID = fmt.Sprintf("user-%d", r.seq)
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

type stubResetRepo struct {
	mu      sync.Mutex
	byToken map[string]*domain.PasswordResetToken
	// beforeMarkUsed runs ahead of MarkUsed, outside the lock.
	beforeMarkUsed func()
}

func newStubResetRepo() *stubResetRepo {
	return &stubResetRepo{byToken: make(map[string]*domain.PasswordResetToken)}
}

func (r *stubResetRepo) ReplaceForUser(_ context.Context, t *domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tok, existing := range r.byToken {
		if existing.UserID == t.UserID {
			delete(r.byToken, tok)
		}
	}
	c := *t
	r.byToken[t.Token] = &c
	return nil
}

func (r *stubResetRepo) FindByToken(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok {
		return nil, domain.ErrResetTokenNotFound
	}
	c := *t
	return &c, nil
}

func (r *stubResetRepo) FindByUser(_ context.Context, userID string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byToken {
		if t.UserID == userID {
			c := *t
			return &c, nil
		}
	}
	return nil, domain.ErrResetTokenNotFound
}

func (r *stubResetRepo) MarkUsed(_ context.Context, token string) (bool, error) {
	if r.beforeMarkUsed != nil {
		r.beforeMarkUsed()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byToken[token]
	if !ok || t.Used {
		return false, nil
	}
	t.Used = true
	return true, nil
}

func (r *stubResetRepo) Release(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byToken[token]; ok {
		t.Used = false
	}
	return nil
}

func (r *stubResetRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, token)
	return nil
}

func (r *stubResetRepo) forUser(userID string) []*domain.PasswordResetToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PasswordResetToken
	for _, t := range r.byToken {
		if t.UserID == userID {
			c := *t
			out = append(out, &c)
		}
	}
	return out
}

// stubHasher is a reversible stand-in for bcrypt that keeps tests fast.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (stubHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type sentMail struct {
	to, subject, body string
}

type stubMailer struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

func (m *stubMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *stubMailer) lastToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return ""
	}
	body := m.sent[len(m.sent)-1].body
	i := strings.Index(body, "token=")
	if i < 0 {
		return ""
	}
	rest := body[i+len("token="):]
	if j := strings.IndexAny(rest, "\n "); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
