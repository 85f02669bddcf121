package adapter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

var errNotConfigured = errors.New("fake client: method not configured")

// FakeEthClient is a hand-written EthClient used by tests in place of a
// generated mock (see DESIGN.md). Every method is backed by a field the
// test can set directly, or a function hook for more elaborate behavior.
type FakeEthClient struct {
	mu sync.Mutex

	HeaderByNumberFunc      func(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockByNumberFunc       func(ctx context.Context, number *big.Int) (*types.Block, error)
	FilterLogsFunc          func(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogsFunc func(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	SubscribeNewHeadFunc    func(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)

	Closed bool
}

// NewFakeEthClient returns a FakeEthClient with no behavior configured;
// tests set the *Func fields they need.
func NewFakeEthClient() *FakeEthClient {
	return &FakeEthClient{}
}

func (f *FakeEthClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if f.SubscribeNewHeadFunc != nil {
		return f.SubscribeNewHeadFunc(ctx, ch)
	}
	return nil, errNotConfigured
}

func (f *FakeEthClient) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if f.SubscribeFilterLogsFunc != nil {
		return f.SubscribeFilterLogsFunc(ctx, query, ch)
	}
	return nil, errNotConfigured
}

func (f *FakeEthClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if f.FilterLogsFunc != nil {
		return f.FilterLogsFunc(ctx, query)
	}
	return nil, nil
}

func (f *FakeEthClient) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	if f.BlockByNumberFunc != nil {
		return f.BlockByNumberFunc(ctx, number)
	}
	return nil, errNotConfigured
}

func (f *FakeEthClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if f.HeaderByNumberFunc != nil {
		return f.HeaderByNumberFunc(ctx, number)
	}
	return nil, errNotConfigured
}

func (f *FakeEthClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}

// fakeSubscription is a minimal ethereum.Subscription for tests.
type fakeSubscription struct {
	errCh chan error
}

// NewFakeSubscription returns a subscription whose Err channel a test can
// push to in order to simulate a stream disconnect.
func NewFakeSubscription() (*fakeSubscription, chan error) {
	ch := make(chan error, 1)
	return &fakeSubscription{errCh: ch}, ch
}

func (s *fakeSubscription) Unsubscribe() {}

func (s *fakeSubscription) Err() <-chan error {
	return s.errCh
}

// FakeEthClientDialer returns a preconfigured set of clients by URL, and a
// fresh FakeEthClient for URLs it doesn't recognize. Dial fails only when
// ErrFunc returns an error for the URL.
type FakeEthClientDialer struct {
	Clients map[string]EthClient
	ErrFunc func(rawurl string) error
}

func NewFakeEthClientDialer() *FakeEthClientDialer {
	return &FakeEthClientDialer{Clients: make(map[string]EthClient)}
}

func (d *FakeEthClientDialer) Dial(ctx context.Context, rawurl string) (EthClient, error) {
	if d.ErrFunc != nil {
		if err := d.ErrFunc(rawurl); err != nil {
			return nil, err
		}
	}
	if c, ok := d.Clients[rawurl]; ok {
		return c, nil
	}
	return NewFakeEthClient(), nil
}

// FakeClock is a Clock whose After channel a test controls directly,
// letting ticker-driven code (the Confirmation Tracker, the HTTP fallback)
// be advanced deterministically instead of waiting on a real timer.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	afterCh chan time.Time
}

// NewFakeClock returns a FakeClock fixed at now. Every After() call returns
// the same channel, so each Tick() releases a single waiter.
func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now, afterCh: make(chan time.Time, 1)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *FakeClock) Sleep(d time.Duration) {}

func (c *FakeClock) Parse(layout, value string) (time.Time, error) {
	return time.Parse(layout, value)
}

func (c *FakeClock) Unix(sec int64, nsec int64) time.Time {
	return time.Unix(sec, nsec)
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	return c.afterCh
}

// Tick advances the clock by one second and sends the new time on the
// channel shared by every After() call.
func (c *FakeClock) Tick() {
	c.mu.Lock()
	c.now = c.now.Add(time.Second)
	t := c.now
	c.mu.Unlock()
	c.afterCh <- t
}
