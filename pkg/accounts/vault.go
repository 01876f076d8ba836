package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "xpulse"
	keyringPrefix  = "account_"
	keyringIndex   = "account_index"
)

// ErrCredentialNotFound is returned when no stored credential matches.
var ErrCredentialNotFound = errors.New("credential not found")

// Vault stores harvester account credentials in the system keychain. The
// keychain cannot enumerate keys, so an index entry tracks stored usernames.
type Vault struct{}

// NewVault verifies the system keychain is usable and returns a vault.
func NewVault() (*Vault, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &Vault{}, nil
}

// Store saves one credential under its username.
func (v *Vault) Store(cred Credential) error {
	if cred.Username == "" || cred.Password == "" {
		return errors.New("username and password are required")
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+cred.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}

	return v.updateIndex(func(index map[string]bool) {
		index[cred.Username] = true
	})
}

// Retrieve loads one credential by username.
func (v *Vault) Retrieve(username string) (Credential, error) {
	if username == "" {
		return Credential{}, ErrCredentialNotFound
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credential{}, ErrCredentialNotFound
		}
		return Credential{}, fmt.Errorf("failed to read from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return Credential{}, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return cred, nil
}

// List returns every stored credential, ordered by username.
func (v *Vault) List() ([]Credential, error) {
	index, err := v.readIndex()
	if err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(index))
	for username := range index {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)

	var creds []Credential
	for _, username := range usernames {
		cred, err := v.Retrieve(username)
		if err != nil {
			if errors.Is(err, ErrCredentialNotFound) {
				continue
			}
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// Delete removes one credential and its index entry.
func (v *Vault) Delete(username string) error {
	if username == "" {
		return ErrCredentialNotFound
	}

	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}

	return v.updateIndex(func(index map[string]bool) {
		delete(index, username)
	})
}

func (v *Vault) readIndex() (map[string]bool, error) {
	data, err := keyring.Get(keyringService, keyringIndex)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}

	var index map[string]bool
	if err := json.Unmarshal([]byte(data), &index); err != nil {
		return map[string]bool{}, nil
	}
	return index, nil
}

func (v *Vault) updateIndex(mutate func(map[string]bool)) error {
	index, err := v.readIndex()
	if err != nil {
		return err
	}
	mutate(index)

	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal keyring index: %w", err)
	}
	if err := keyring.Set(keyringService, keyringIndex, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring index: %w", err)
	}
	return nil
}
