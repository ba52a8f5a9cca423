// Package factors seeds emission factors from a YAML file and re-applies it when the file changes.
package factors

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/j-veylop/energy-kpi/internal/logger"
	"github.com/j-veylop/energy-kpi/internal/models"
)

const debounceInterval = 500 * time.Millisecond

// Store is where seeded factors are written.
type Store interface {
	CreateEmissionFactor(ctx context.Context, in models.EmissionFactorInput) (*models.EmissionFactor, error)
	FactorExists(ctx context.Context, in models.EmissionFactorInput) (bool, error)
}

// SeedFile is the YAML file structure.
type SeedFile struct {
	Factors []models.EmissionFactorInput `yaml:"factors"`
}

// Event represents a factor service event.
type Event struct {
	Error   error
	Type    EventType
	Applied int
}

// EventType defines the type of factor event.
type EventType int

const (
	EventFactorsLoaded EventType = iota
	EventFactorsChanged
	EventError
)

// Service applies the seed file to the store and watches it for changes.
type Service struct {
	mu            sync.Mutex
	store         Store
	filePath      string
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	stopOnce      sync.Once
}

// DefaultPath returns the default seed file path.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "emission_factors.yaml"
	}
	return filepath.Join(home, ".config", "ekpi", "emission_factors.yaml")
}

// New creates the service, writes the default seed file if none exists and applies it.
// Call Watch to re-apply the file on changes.
func New(ctx context.Context, store Store, filePath string) (*Service, error) {
	if filePath == "" {
		filePath = DefaultPath()
	}

	s := &Service{
		store:     store,
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create factors directory: %w", err)
	}

	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		if err := WriteSeed(filePath, SeedFile{Factors: DefaultFactors()}); err != nil {
			return nil, fmt.Errorf("failed to create factors file: %w", err)
		}
	}

	applied, err := s.Apply(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to apply factors: %w", err)
	}

	s.sendEvent(Event{Type: EventFactorsLoaded, Applied: applied})
	return s, nil
}

// Path returns the seed file path.
func (s *Service) Path() string {
	return s.filePath
}

// Events returns the event channel for subscribing to factor changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse factors file: %w", err)
	}

	for i, f := range seed.Factors {
		if f.Carrier == "" || f.Source == "" || f.Unit == "" {
			return nil, fmt.Errorf("factor %d: carrier, source and unit are required", i)
		}
		if f.Factor < 0 {
			return nil, fmt.Errorf("factor %d: negative factor %v", i, f.Factor)
		}
	}
	return &seed, nil
}

// WriteSeed writes seed to path, replacing it atomically.
func WriteSeed(path string, seed SeedFile) error {
	data, err := yaml.Marshal(seed)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	// Write to temp file first, then rename
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Apply registers every factor of the seed file the store does not hold yet and
// returns how many were created.
func (s *Service) Apply(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seed, err := LoadSeed(s.filePath)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, f := range seed.Factors {
		exists, err := s.store.FactorExists(ctx, f)
		if err != nil {
			return applied, err
		}
		if exists {
			continue
		}
		if _, err := s.store.CreateEmissionFactor(ctx, f); err != nil {
			return applied, err
		}
		applied++
	}

	logger.Info("emission factors applied", "path", s.filePath, "created", applied, "total", len(seed.Factors))
	return applied, nil
}

// Watch starts watching the seed file's directory.
func (s *Service) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory (to catch editors that replace the file)
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange re-applies the seed file after an external change.
func (s *Service) handleFileChange() {
	select {
	case <-s.stopChan:
		return
	default:
	}

	applied, err := s.Apply(context.Background())
	if err != nil {
		logger.Warn("failed to re-apply emission factors", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	s.sendEvent(Event{Type: EventFactorsChanged, Applied: applied})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher.
func (s *Service) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })

	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.mu.Unlock()

	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
