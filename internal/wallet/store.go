package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrStoreCorrupt marks a wallets file that could not be parsed. The store never
// truncates a file it cannot read; recovery is left to the user.
var ErrStoreCorrupt = errors.New("wallet store corrupt")

// Store is the on-disk set of saved wallets. Ephemeral wallets never pass
// through it.
type Store struct {
	path string
}

// NewStore creates a store rooted at configDir. The directory is created lazily
// on first save, not here.
func NewStore(configDir string) *Store {
	return &Store{path: filepath.Join(configDir, "wallets.json")}
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads all saved wallets. A missing file is an empty store.
func (s *Store) Load() ([]Wallet, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read wallet store: %w", err)
	}
	var wallets []Wallet
	if err := json.Unmarshal(data, &wallets); err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid wallet file, delete it and restart: %v", ErrStoreCorrupt, s.path, err)
	}
	return wallets, nil
}

// Create generates a new wallet, appends it, and persists the store.
func (s *Store) Create(name string) (Wallet, error) {
	w, err := Generate(name)
	if err != nil {
		return Wallet{}, err
	}
	if err := s.append(w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Import saves a wallet built from a provided private key.
func (s *Store) Import(name, privateKey string) (Wallet, error) {
	w, err := FromPrivateKey(name, privateKey)
	if err != nil {
		return Wallet{}, err
	}
	if err := s.append(w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// CreateEphemeral generates a wallet that is never written to disk.
func (s *Store) CreateEphemeral() (Wallet, error) {
	return Generate("ephemeral")
}

// Delete removes the wallet with the given address, matched case-insensitively.
func (s *Store) Delete(address string) error {
	wallets, err := s.Load()
	if err != nil {
		return err
	}
	kept := wallets[:0]
	removed := false
	for _, w := range wallets {
		if strings.EqualFold(w.Address, address) {
			removed = true
			continue
		}
		kept = append(kept, w)
	}
	if !removed {
		return fmt.Errorf("no wallet with address %s", address)
	}
	return s.save(kept)
}

func (s *Store) append(w Wallet) error {
	wallets, err := s.Load()
	if err != nil {
		return err
	}
	return s.save(append(wallets, w))
}

func (s *Store) save(wallets []Wallet) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if wallets == nil {
		wallets = []Wallet{}
	}
	data, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return fmt.Errorf("encode wallet store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write wallet store: %w", err)
	}
	return nil
}
