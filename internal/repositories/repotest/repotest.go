// Package repotest provides in-memory repositories with the same
// semantics as the Mongo ones, for service and handler tests.
package repotest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"supplierhub/internal/models"
	"supplierhub/internal/repositories"
)

// Users is an in-memory repositories.UserRepository. Set Err to make every
// call fail.
type Users struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.User
	Err   error
	Calls int
}

func NewUsers() *Users {
	return &Users{byID: make(map[primitive.ObjectID]*models.User)}
}

func (u *Users) enter() error {
	u.Calls++
	return u.Err
}

// Put stores a copy of user, assigning an ID if it has none.
func (u *Users) Put(user *models.User) *models.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	cp := *user
	u.byID[user.ID] = &cp
	return user
}

// Delete removes the user, simulating a concurrent account deletion.
func (u *Users) Delete(id primitive.ObjectID) {
	u.mu.Lock()
	delete(u.byID, id)
	u.mu.Unlock()
}

func (u *Users) Get(id primitive.ObjectID) *models.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	if user, ok := u.byID[id]; ok {
		cp := *user
		return &cp
	}
	return nil
}

func (u *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return nil, err
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (u *Users) FindByPhone(_ context.Context, phone string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return nil, err
	}
	if user := u.byPhone(phone); user != nil {
		cp := *user
		return &cp, nil
	}
	return nil, repositories.ErrNotFound
}

func (u *Users) byPhone(phone string) *models.User {
	for _, user := range u.byID {
		if user.Phone == phone {
			return user
		}
	}
	return nil
}

func (u *Users) FindOrCreateByPhone(_ context.Context, phone string, now time.Time) (*models.User, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return nil, false, err
	}
	if user := u.byPhone(phone); user != nil {
		cp := *user
		return &cp, false, nil
	}
	user := &models.User{ID: primitive.NewObjectID(), Phone: phone, CreatedAt: now, UpdatedAt: now}
	u.byID[user.ID] = user
	cp := *user
	return &cp, true, nil
}

func (u *Users) RecordLogin(_ context.Context, id primitive.ObjectID, deviceInfo string, now time.Time) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return nil, err
	}
	user, ok := u.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	at := now
	user.IsVerified = true
	user.LastLogin = &at
	user.DeviceInfo = deviceInfo
	user.LastTokenIssued = &at
	user.UpdatedAt = now
	cp := *user
	return &cp, nil
}

func (u *Users) SetWatermark(_ context.Context, id primitive.ObjectID, at time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return err
	}
	user, ok := u.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.LastTokenIssued = &at
	user.UpdatedAt = at
	return nil
}

func (u *Users) SetPasswordHash(_ context.Context, id primitive.ObjectID, hash string, now time.Time) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if err := u.enter(); err != nil {
		return err
	}
	user, ok := u.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.PasswordHash = hash
	user.UpdatedAt = now
	return nil
}

// OTPs is an in-memory repositories.OTPRepository keyed by phone.
type OTPs struct {
	mu      sync.Mutex
	byPhone map[string]models.OTP
	Err     error
}

func NewOTPs() *OTPs {
	return &OTPs{byPhone: make(map[string]models.OTP)}
}

// Code returns the pending code for phone, or "".
func (o *OTPs) Code(phone string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.byPhone[phone].Code
}

func (o *OTPs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.byPhone)
}

func (o *OTPs) Upsert(_ context.Context, phone, code string, expiresAt, now time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.byPhone[phone] = models.OTP{ID: primitive.NewObjectID(), Phone: phone, Code: code, ExpiresAt: expiresAt, CreatedAt: now}
	return nil
}

func (o *OTPs) Consume(_ context.Context, phone, code string) (*models.OTP, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	otp, ok := o.byPhone[phone]
	if !ok || otp.Code != code {
		return nil, repositories.ErrNotFound
	}
	delete(o.byPhone, phone)
	return &otp, nil
}

func (o *OTPs) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return 0, o.Err
	}
	var n int64
	for phone, otp := range o.byPhone {
		if !now.Before(otp.ExpiresAt) {
			delete(o.byPhone, phone)
			n++
		}
	}
	return n, nil
}

// Suppliers is an in-memory repositories.SupplierRepository.
type Suppliers struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Supplier
	Err  error
}

func NewSuppliers() *Suppliers {
	return &Suppliers{byID: make(map[primitive.ObjectID]*models.Supplier)}
}

func (s *Suppliers) Put(supplier *models.Supplier) *models.Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	if supplier.ID.IsZero() {
		supplier.ID = primitive.NewObjectID()
	}
	cp := *supplier
	s.byID[supplier.ID] = &cp
	return supplier
}

func (s *Suppliers) FindByID(_ context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	supplier, ok := s.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *supplier
	return &cp, nil
}

var (
	_ repositories.UserRepository     = (*Users)(nil)
	_ repositories.OTPRepository      = (*OTPs)(nil)
	_ repositories.SupplierRepository = (*Suppliers)(nil)
)
