package services

import (
	"errors"
	"sync"
	"time"

	"rulevault/internal/models"
)

// In-memory fakes for the repository and mail contracts, so service behavior
// is tested without a database.

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*models.VerificationCode
}

func (f *fakeCodeRepo) Create(code *models.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *code
	f.codes = append(f.codes, &cp)
	return nil
}

func (f *fakeCodeRepo) GetLatest(email, purpose string) (*models.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.VerificationCode
	for _, c := range f.codes {
		if c.Email != email || c.Purpose != purpose || c.UsedAt != nil || c.InvalidatedAt != nil {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeCodeRepo) IncrementAttempts(id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID == id {
			c.Attempts++
			return c.Attempts, nil
		}
	}
	return 0, errors.New("code not found")
}

func (f *fakeCodeRepo) MarkUsed(id string, usedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.ID == id && c.UsedAt == nil {
			t := usedAt
			c.UsedAt = &t
		}
	}
	return nil
}

func (f *fakeCodeRepo) InvalidateActive(email, purpose string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.codes {
		if c.Email == email && c.Purpose == purpose && c.UsedAt == nil && c.InvalidatedAt == nil {
			t := now
			c.InvalidatedAt = &t
		}
	}
	return nil
}

func (f *fakeCodeRepo) activeCount(email, purpose string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.codes {
		if c.Email == email && c.Purpose == purpose && c.UsedAt == nil && c.InvalidatedAt == nil {
			n++
		}
	}
	return n
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[string]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Email]; exists {
		return errors.New("duplicate email")
	}
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.users[user.Email] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type sentMail struct {
	email string
	code  string
}

type fakeEmailService struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeEmailService) SendVerificationCode(email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{email: email, code: code})
	return nil
}

func (f *fakeEmailService) lastCode() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].code
}

type fakeTokenRepo struct {
	mu   sync.Mutex
	recs map[string]*models.RefreshTokenRecord
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{recs: make(map[string]*models.RefreshTokenRecord)}
}

func (f *fakeTokenRepo) Create(rec *models.RefreshTokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.recs[rec.ID] = &cp
	return nil
}

func (f *fakeTokenRepo) GetByID(id string) (*models.RefreshTokenRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeTokenRepo) Revoke(id string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.recs[id]
	if !ok || rec.RevokedAt != nil {
		return false, nil
	}
	t := now
	rec.RevokedAt = &t
	return true, nil
}

func (f *fakeTokenRepo) SetReplacedBy(id, replacedByID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.recs[id]; ok {
		s := replacedByID
		rec.ReplacedByTokenID = &s
	}
	return nil
}

func (f *fakeTokenRepo) DeleteStale(revokedCutoff, expiredCutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, rec := range f.recs {
		if (rec.RevokedAt != nil && !rec.RevokedAt.After(revokedCutoff)) || !rec.ExpiresAt.After(expiredCutoff) {
			delete(f.recs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

type fakeAlerts struct {
	mu          sync.Mutex
	reuseEvents []string
	cleanupRuns []int64
}

func (f *fakeAlerts) TokenReuseDetected(userID int64, tokenID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reuseEvents = append(f.reuseEvents, tokenID)
}

func (f *fakeAlerts) CleanupCompleted(deletedCount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanupRuns = append(f.cleanupRuns, deletedCount)
}
