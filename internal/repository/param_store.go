package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/pkg/cache"
	applogger "FinCast/pkg/logger"
)

const paramsKeyPrefix = "arima:params"

// FileParamStore keeps one <TICKER>_params.json per instrument.
type FileParamStore struct {
	dir string
	mu  sync.Mutex
	l   *applogger.Logger
}

func NewFileParamStore(dir string, l *applogger.Logger) *FileParamStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &FileParamStore{dir: dir, l: l}
}

func (s *FileParamStore) path(instrument string) string {
	return filepath.Join(s.dir, strings.ToUpper(instrument)+"_params.json")
}

func (s *FileParamStore) Get(_ context.Context, instrument string) (models.ARIMAParams, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path(instrument))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.ARIMAParams{}, false, nil
		}
		return models.ARIMAParams{}, false, fmt.Errorf("read params: %w", err)
	}
	var p models.ARIMAParams
	if err := json.Unmarshal(b, &p); err != nil {
		return models.ARIMAParams{}, false, fmt.Errorf("%w: params for %s: %v", domsvc.ErrInvalidInput, instrument, err)
	}
	return p, true, nil
}

func (s *FileParamStore) Put(_ context.Context, instrument string, p models.ARIMAParams) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create params dir: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".params-*.json")
	if err != nil {
		return fmt.Errorf("create temp params: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write params: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close params: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(instrument)); err != nil {
		return fmt.Errorf("publish params: %w", err)
	}
	s.l.Debug("arima params stored", applogger.String("instrument", instrument), applogger.String("params", p.String()))
	return nil
}

func (s *FileParamStore) Delete(_ context.Context, instrument string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(instrument)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete params: %w", err)
	}
	return nil
}

// CacheParamStore keeps params in a cache.Service (Redis or in-process) without expiry.
type CacheParamStore struct {
	c cache.Service
}

func NewCacheParamStore(c cache.Service) *CacheParamStore {
	return &CacheParamStore{c: c}
}

func paramsKey(instrument string) string {
	return cache.GenerateKey(paramsKeyPrefix, strings.ToUpper(instrument))
}

func (s *CacheParamStore) Get(ctx context.Context, instrument string) (models.ARIMAParams, bool, error) {
	var p models.ARIMAParams
	if err := s.c.Get(ctx, paramsKey(instrument), &p); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.ARIMAParams{}, false, nil
		}
		return models.ARIMAParams{}, false, fmt.Errorf("get params: %w", err)
	}
	return p, true, nil
}

func (s *CacheParamStore) Put(ctx context.Context, instrument string, p models.ARIMAParams) error {
	if err := s.c.Set(ctx, paramsKey(instrument), p, 0); err != nil {
		return fmt.Errorf("put params: %w", err)
	}
	return nil
}

func (s *CacheParamStore) Delete(ctx context.Context, instrument string) error {
	if err := s.c.Delete(ctx, paramsKey(instrument)); err != nil {
		return fmt.Errorf("delete params: %w", err)
	}
	return nil
}

var (
	_ domrepo.ParamStore = (*FileParamStore)(nil)
	_ domrepo.ParamStore = (*CacheParamStore)(nil)
)
