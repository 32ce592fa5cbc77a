// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package remote

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qremote/internal/domain"
	"github.com/autobrr/qremote/internal/models"
)

var ErrPoolClosed = errors.New("client pool is closed")

const (
	defaultIdleTTL = 10 * time.Minute

	initialBackoff = 10 * time.Second
	maxBackoff     = 1 * time.Minute
)

// failureInfo tracks client creation failures for a server.
type failureInfo struct {
	nextRetry time.Time
	attempts  int
}

// Pool hands out one client per server profile. Editing a profile bumps its
// UpdatedAt, which makes the next Get build a fresh client.
type Pool struct {
	factory Factory
	clients *ttlcache.Cache[string, domain.TorrentService]

	mu             sync.Mutex
	creationMu     sync.Mutex
	creationLocks  map[string]*sync.Mutex
	failureTracker map[string]*failureInfo
	closed         bool
	now            func() time.Time
}

func NewPool(factory Factory, idleTTL time.Duration) *Pool {
	if idleTTL <= 0 {
		idleTTL = defaultIdleTTL
	}
	return &Pool{
		factory:        factory,
		clients:        ttlcache.New(ttlcache.Options[string, domain.TorrentService]{}.SetDefaultTTL(idleTTL)),
		creationLocks:  make(map[string]*sync.Mutex),
		failureTracker: make(map[string]*failureInfo),
		now:            time.Now,
	}
}

func cacheKey(p models.ServerProfile) string {
	return p.ID + "|" + strconv.FormatInt(p.UpdatedAt.UnixNano(), 10)
}

func (p *Pool) getServerLock(id string) *sync.Mutex {
	p.creationMu.Lock()
	defer p.creationMu.Unlock()

	if lock, ok := p.creationLocks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	p.creationLocks[id] = lock
	return lock
}

// Get returns the cached client for profile or creates one.
func (p *Pool) Get(ctx context.Context, profile models.ServerProfile) (domain.TorrentService, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	key := cacheKey(profile)
	if c, ok := p.clients.Get(key); ok {
		return c, nil
	}

	lock := p.getServerLock(profile.ID)
	lock.Lock()
	defer lock.Unlock()

	if c, ok := p.clients.Get(key); ok {
		return c, nil
	}

	if wait := p.backoffRemaining(profile.ID); wait > 0 {
		return nil, fmt.Errorf("server %s is in backoff period, retry in %s", profile.ID, wait.Round(time.Second))
	}

	c, err := p.factory(ctx, profile)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedType) {
			p.trackFailure(profile.ID, err)
		}
		return nil, err
	}

	p.resetFailureTracking(profile.ID)
	p.evictServer(profile.ID)
	p.clients.Set(key, c, ttlcache.DefaultTTL)

	log.Debug().Str("serverID", profile.ID).Str("type", string(profile.ClientType())).Msg("Created torrent client")
	return c, nil
}

// Remove drops every cached client for a server.
func (p *Pool) Remove(serverID string) {
	p.evictServer(serverID)
	p.resetFailureTracking(serverID)
}

func (p *Pool) evictServer(serverID string) {
	prefix := serverID + "|"
	for _, key := range p.clients.GetKeys() {
		if strings.HasPrefix(key, prefix) {
			p.clients.Delete(key)
		}
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.failureTracker = make(map[string]*failureInfo)
	p.mu.Unlock()

	p.clients.Close()
	log.Debug().Msg("Client pool closed")
	return nil
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Pool) backoffRemaining(serverID string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.failureTracker[serverID]
	if !ok {
		return 0
	}
	return info.nextRetry.Sub(p.now())
}

// trackFailure records a failure and applies exponential backoff.
func (p *Pool) trackFailure(serverID string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	info, ok := p.failureTracker[serverID]
	if !ok {
		info = &failureInfo{}
		p.failureTracker[serverID] = info
	}
	info.attempts++

	backoff := calculateBackoff(info.attempts, initialBackoff, maxBackoff)
	info.nextRetry = p.now().Add(backoff)

	log.Debug().Err(err).Str("serverID", serverID).Int("attempts", info.attempts).Dur("backoffDuration", backoff).Msg("Client creation failed, applying backoff")
}

func (p *Pool) resetFailureTracking(serverID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failureTracker, serverID)
}

func calculateBackoff(attempts int, initial, maximum time.Duration) time.Duration {
	if attempts > 16 {
		return maximum
	}
	return min(time.Duration(1<<(attempts-1))*initial, maximum)
}
