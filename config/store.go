// Package config stores the validated configuration records of the on-air
// engine: one crossfade record and one processing record per channel.
//
// Set operations are strict. A record with any out-of-range or non-finite
// field is rejected with a *[ValidationError] and the stored record stays
// as it was; only the stem filter amount is clamped. Reads never fail:
// channels without a stored record report their default record.
//
// Files are hydrated explicitly: every missing field takes the
// channel-specific default and numeric fields are clamped into range.
package config

import (
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Snapshot is an immutable copy of the store contents.
type Snapshot struct {
	Version   uint64
	Crossfade CrossfadeConfig
	Pipelines map[ChannelID]PipelineSettings
}

// Pipeline returns the record of ch, or its default when none is stored.
// It does not allocate.
func (s *Snapshot) Pipeline(ch ChannelID) PipelineSettings {
	if p, ok := s.Pipelines[ch]; ok {
		return p
	}
	return DefaultPipeline(ch)
}

// Store holds the configuration records. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	crossfade CrossfadeConfig
	pipelines map[ChannelID]PipelineSettings
	version   uint64

	subs    map[int]func(version uint64)
	nextSub int

	log zerolog.Logger
}

// Option configures a [Store].
type Option func(*Store)

// WithLogger sets the logger used by file loading and watching.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l.With().Str("component", "config").Logger()
	}
}

// NewStore returns a store holding only defaults.
func NewStore(opts ...Option) *Store {
	s := &Store{
		crossfade: DefaultCrossfadeConfig(),
		pipelines: make(map[ChannelID]PipelineSettings),
		subs:      make(map[int]func(uint64)),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CrossfadeConfig returns the crossfade record.
func (s *Store) CrossfadeConfig() CrossfadeConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.crossfade
}

// SetCrossfadeConfig replaces the crossfade record.
func (s *Store) SetCrossfadeConfig(c CrossfadeConfig) error {
	if err := ValidateCrossfade(c); err != nil {
		return err
	}

	s.mu.Lock()
	s.crossfade = c
	s.commitLocked()

	return nil
}

// Pipeline returns the record of ch, or its default.
func (s *Store) Pipeline(ch ChannelID) PipelineSettings {
	p, _ := s.Lookup(ch)
	return p
}

// Lookup is [Store.Pipeline] for callers that need to know whether a
// record is stored. It returns the default record and ErrNotFound when
// none is.
func (s *Store) Lookup(ch ChannelID) (PipelineSettings, error) {
	s.mu.RLock()
	p, ok := s.pipelines[ch]
	s.mu.RUnlock()

	if !ok {
		return DefaultPipeline(ch), ErrNotFound
	}
	return p, nil
}

// SetPipeline replaces the record of ch.
func (s *Store) SetPipeline(ch ChannelID, p PipelineSettings) error {
	p, err := NormalizePipeline(p)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pipelines[ch] = p
	s.commitLocked()

	return nil
}

// SetEQ sets the three EQ gains of ch and enables the EQ stage. All other
// fields keep their stored values.
func (s *Store) SetEQ(ch ChannelID, lowDB, midDB, highDB float64) error {
	s.mu.Lock()
	p, ok := s.pipelines[ch]
	if !ok {
		p = DefaultPipeline(ch)
	}
	p.EQ.Enabled = true
	p.EQ.LowGainDB = lowDB
	p.EQ.MidGainDB = midDB
	p.EQ.HighGainDB = highDB

	p, err := NormalizePipeline(p)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.pipelines[ch] = p
	s.commitLocked()

	return nil
}

// Channels returns the channels with a stored record, sorted.
func (s *Store) Channels() []ChannelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.pipelines))
}

// Version returns the number of mutations so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a copy of the current contents.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{
		Version:   s.version,
		Crossfade: s.crossfade,
		Pipelines: maps.Clone(s.pipelines),
	}
}

// Subscribe registers fn to be called after every mutation with the new
// version. fn runs on the mutating goroutine and must not block.
func (s *Store) Subscribe(fn func(version uint64)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// replace swaps in a complete set of records.
func (s *Store) replace(c CrossfadeConfig, pipelines map[ChannelID]PipelineSettings) {
	s.mu.Lock()
	s.crossfade = c
	s.pipelines = pipelines
	s.commitLocked()
}

// commitLocked bumps the version, releases the lock and notifies
// subscribers.
func (s *Store) commitLocked() {
	s.version++
	v := s.version
	subs := slices.Collect(maps.Values(s.subs))
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}
