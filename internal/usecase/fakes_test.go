package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/accounts/internal/domain"
)

// ---- fakes ----

type fakeUserRepo struct {
	findByID       func(ctx context.Context, id string) (*domain.User, error)
	findByUsername func(ctx context.Context, username string) (*domain.User, error)
	findByEmail    func(ctx context.Context, email string) (*domain.User, error)
	findByLogin    func(ctx context.Context, usernameOrEmail string) (*domain.User, error)
	create         func(ctx context.Context, in domain.NewUser) (*domain.User, *domain.Session, error)
	updateEmail    func(ctx context.Context, userID, email string) error
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findByUsername(ctx, username)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

func (r *fakeUserRepo) FindByLogin(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	return r.findByLogin(ctx, usernameOrEmail)
}

func (r *fakeUserRepo) Create(ctx context.Context, in domain.NewUser) (*domain.User, *domain.Session, error) {
	return r.create(ctx, in)
}

func (r *fakeUserRepo) UpdateEmail(ctx context.Context, userID, email string) error {
	return r.updateEmail(ctx, userID, email)
}

type fakePasswordRepo struct {
	hash   func(ctx context.Context, userID string) ([]byte, error)
	create func(ctx context.Context, userID string, hash []byte) error
	update func(ctx context.Context, userID string, hash []byte) error
}

func (r *fakePasswordRepo) Hash(ctx context.Context, userID string) ([]byte, error) {
	return r.hash(ctx, userID)
}

func (r *fakePasswordRepo) Create(ctx context.Context, userID string, hash []byte) error {
	return r.create(ctx, userID, hash)
}

func (r *fakePasswordRepo) Update(ctx context.Context, userID string, hash []byte) error {
	return r.update(ctx, userID, hash)
}

type fakeSessionRepo struct {
	create        func(ctx context.Context, userID string, expiresAt time.Time) (*domain.Session, error)
	findByID      func(ctx context.Context, id string) (*domain.Session, error)
	delete        func(ctx context.Context, id string) error
	deleteExpired func(ctx context.Context, now time.Time) (int64, error)
}

func (r *fakeSessionRepo) Create(ctx context.Context, userID string, expiresAt time.Time) (*domain.Session, error) {
	return r.create(ctx, userID, expiresAt)
}

func (r *fakeSessionRepo) FindByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.findByID(ctx, id)
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.deleteExpired(ctx, now)
}

type fakeImageRepo struct {
	replace      func(ctx context.Context, img *domain.UserImage) (*domain.UserImage, error)
	deleteByUser func(ctx context.Context, userID string) error
	findByID     func(ctx context.Context, id string) (*domain.UserImage, error)
}

func (r *fakeImageRepo) Replace(ctx context.Context, img *domain.UserImage) (*domain.UserImage, error) {
	return r.replace(ctx, img)
}

func (r *fakeImageRepo) DeleteByUser(ctx context.Context, userID string) error {
	return r.deleteByUser(ctx, userID)
}

func (r *fakeImageRepo) FindByID(ctx context.Context, id string) (*domain.UserImage, error) {
	return r.findByID(ctx, id)
}

type fakeConnectionRepo struct {
	find   func(ctx context.Context, providerName, providerID string) (*domain.Connection, error)
	create func(ctx context.Context, c *domain.Connection) error
}

func (r *fakeConnectionRepo) Find(ctx context.Context, providerName, providerID string) (*domain.Connection, error) {
	return r.find(ctx, providerName, providerID)
}

func (r *fakeConnectionRepo) Create(ctx context.Context, c *domain.Connection) error {
	return r.create(ctx, c)
}

type fakeEmailSender struct {
	send func(ctx context.Context, to, subject, body string) error
}

func (s *fakeEmailSender) Send(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

type fakeImageFetcher struct {
	fetch func(ctx context.Context, url string) (*domain.UserImage, error)
}

func (f *fakeImageFetcher) Fetch(ctx context.Context, url string) (*domain.UserImage, error) {
	return f.fetch(ctx, url)
}

// memVerificationRepo keeps one record per (type, target), like the unique
// constraint in the real table.
type memVerificationRepo struct {
	mu      sync.Mutex
	records map[string]domain.Verification
}

func newMemVerificationRepo() *memVerificationRepo {
	return &memVerificationRepo{records: map[string]domain.Verification{}}
}

func verificationKey(t domain.VerificationType, target string) string {
	return string(t) + "\x00" + target
}

func (r *memVerificationRepo) Upsert(_ context.Context, v *domain.Verification) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := *v
	saved.ID = "v-" + string(v.Type) + "-" + v.Target
	r.records[verificationKey(v.Type, v.Target)] = saved
	return &saved, nil
}

func (r *memVerificationRepo) Find(_ context.Context, t domain.VerificationType, target string) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.records[verificationKey(t, target)]
	if !ok {
		return nil, domain.ErrVerificationNotFound
	}
	return &v, nil
}

func (r *memVerificationRepo) Delete(_ context.Context, t domain.VerificationType, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, verificationKey(t, target))
	return nil
}

func (r *memVerificationRepo) Promote(_ context.Context, from, to domain.VerificationType, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.records[verificationKey(from, target)]
	if !ok {
		return domain.ErrVerificationNotFound
	}
	delete(r.records, verificationKey(from, target))
	v.Type = to
	v.ExpiresAt = nil
	r.records[verificationKey(to, target)] = v
	return nil
}

func (r *memVerificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, v := range r.records {
		if !v.Live(now) {
			delete(r.records, k)
			n++
		}
	}
	return n, nil
}

func (r *memVerificationRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// ---- helpers ----

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fixedClock returns a clock frozen at t that tests can move.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

var noopSender = &fakeEmailSender{
	send: func(context.Context, string, string, string) error { return nil },
}
