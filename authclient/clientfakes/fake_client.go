// Package fakeauthclient is a hand-written authclient.Client fake for tests.
package fakeauthclient

import (
	"context"
	"sync"

	"github.com/merchantdash/go-session-client/authclient"
)

var _ authclient.Client = (*FakeClient)(nil)

// FakeClient records calls and plays back scripted results. Each stub field
// may be nil, in which case the corresponding call succeeds with the zero
// result.
type FakeClient struct {
	lock sync.Mutex

	IssueSessionStub      func(authclient.Credentials) (*authclient.Grant, error)
	RenewSessionStub      func(refreshToken string) (*authclient.Renewal, error)
	InvalidateSessionStub func(accessToken string) error

	issueCalls      []authclient.Credentials
	renewCalls      []string
	invalidateCalls []string
}

// NewFakeClient creates an empty fake.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

func (f *FakeClient) IssueSession(_ context.Context, creds authclient.Credentials) (*authclient.Grant, error) {
	f.lock.Lock()
	f.issueCalls = append(f.issueCalls, creds)
	stub := f.IssueSessionStub
	f.lock.Unlock()
	if stub == nil {
		return &authclient.Grant{}, nil
	}
	return stub(creds)
}

func (f *FakeClient) RenewSession(_ context.Context, refreshToken string) (*authclient.Renewal, error) {
	f.lock.Lock()
	f.renewCalls = append(f.renewCalls, refreshToken)
	stub := f.RenewSessionStub
	f.lock.Unlock()
	if stub == nil {
		return &authclient.Renewal{}, nil
	}
	return stub(refreshToken)
}

func (f *FakeClient) InvalidateSession(_ context.Context, accessToken string) error {
	f.lock.Lock()
	f.invalidateCalls = append(f.invalidateCalls, accessToken)
	stub := f.InvalidateSessionStub
	f.lock.Unlock()
	if stub == nil {
		return nil
	}
	return stub(accessToken)
}

// IssueSessionCallCount returns how many times IssueSession was called.
func (f *FakeClient) IssueSessionCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.issueCalls)
}

// RenewSessionCallCount returns how many times RenewSession was called.
func (f *FakeClient) RenewSessionCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.renewCalls)
}

// InvalidateSessionCallCount returns how many times InvalidateSession was called.
func (f *FakeClient) InvalidateSessionCallCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.invalidateCalls)
}
