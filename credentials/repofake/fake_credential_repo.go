package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-catalog-link/credentials"
)

var _ credentials.Repo = (*FakeCredentialRepo)(nil)

type FakeCredentialRepo struct {
	credentials map[string]credentials.AccessCredential
	upserts     int
	lock        sync.RWMutex
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{
		credentials: make(map[string]credentials.AccessCredential),
	}
}

func (cr *FakeCredentialRepo) Get(_ context.Context, userID string) (*credentials.AccessCredential, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	credential, ok := cr.credentials[userID]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return &credential, nil
}

func (cr *FakeCredentialRepo) Upsert(_ context.Context, credential credentials.AccessCredential) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.credentials[credential.UserID] = credential
	cr.upserts++
	return nil
}

func (cr *FakeCredentialRepo) Delete(_ context.Context, userID string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	delete(cr.credentials, userID)
	return nil
}

// Upserts reports how many times Upsert has been called.
func (cr *FakeCredentialRepo) Upserts() int {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return cr.upserts
}
