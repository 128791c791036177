package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

var (
	ErrAccountNotFound = errors.New("account not attached")
	ErrEmptyName       = errors.New("account name is empty")
)

// Store persists attached accounts as a JSON array in a single file.
// It is safe for concurrent use within one process.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path. The file is created on the first
// Attach.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Attach saves acc. An account with the same name (case-insensitive) is
// replaced, and replaced reports that it was.
func (s *Store) Attach(acc Account) (replaced bool, err error) {
	if strings.TrimSpace(acc.Name) == "" {
		return false, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return false, err
	}

	if i := indexOf(accounts, acc.Name); i >= 0 {
		accounts[i] = acc
		replaced = true
	} else {
		accounts = append(accounts, acc)
	}
	return replaced, s.save(accounts)
}

// Detach removes the account called name.
func (s *Store) Detach(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return err
	}

	i := indexOf(accounts, name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return s.save(slices.Delete(accounts, i, i+1))
}

// Get returns the account called name.
func (s *Store) Get(name string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return Account{}, err
	}
	if i := indexOf(accounts, name); i >= 0 {
		return accounts[i], nil
	}
	return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
}

// List returns every attached account sorted by name.
func (s *Store) List() ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := s.load()
	if err != nil {
		return nil, err
	}
	slices.SortFunc(accounts, func(a, b Account) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return accounts, nil
}

func (s *Store) load() ([]Account, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account store: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("decode account store %s: %w", s.path, err)
	}
	return accounts, nil
}

func (s *Store) save(accounts []Account) error {
	if accounts == nil {
		accounts = []Account{}
	}
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write account store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace account store: %w", err)
	}
	return nil
}

func indexOf(accounts []Account, name string) int {
	return slices.IndexFunc(accounts, func(a Account) bool {
		return strings.EqualFold(a.Name, name)
	})
}
