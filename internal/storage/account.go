package storage

import (
	"fmt"
	"strings"
)

const primaryKeyName = "primaryKey"

// Well-known credentials of the local storage emulator.
const (
	EmulatorAccountName = "devstoreaccount1"
	EmulatorAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	emulatorHost        = "127.0.0.1"
)

// AccountKey is a named shared key. An empty Value means the account is
// reached with a token credential instead.
type AccountKey struct {
	KeyName string `json:"keyName"`
	Value   string `json:"value"`
}

// Endpoints holds the primary endpoint URL of each service.
type Endpoints struct {
	Blob  string `json:"blob,omitempty"`
	File  string `json:"file,omitempty"`
	Queue string `json:"queue,omitempty"`
	Table string `json:"table,omitempty"`
}

// For returns the endpoint of svc, or "" if the account does not expose it.
func (e Endpoints) For(svc Service) string {
	switch svc {
	case Blob:
		return e.Blob
	case File:
		return e.File
	case Queue:
		return e.Queue
	case Table:
		return e.Table
	default:
		return ""
	}
}

func (e *Endpoints) set(svc Service, url string) {
	switch svc {
	case Blob:
		e.Blob = url
	case File:
		e.File = url
	case Queue:
		e.Queue = url
	case Table:
		e.Table = url
	}
}

// Account is an attached storage account.
type Account struct {
	Name      string     `json:"name"`
	Key       AccountKey `json:"key"`
	Endpoints Endpoints  `json:"primaryEndpoints"`
}

// IsEmulator reports whether a is the local storage emulator account.
func (a Account) IsEmulator() bool { return strings.EqualFold(a.Name, EmulatorAccountName) }

// HasKey reports whether the account carries a shared key.
func (a Account) HasKey() bool { return a.Key.Value != "" }

// EmulatorEndpoint returns the local emulator URL of svc.
func EmulatorEndpoint(svc Service) (string, bool) {
	port, ok := svc.emulatorPort()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("http://%s:%d/%s", emulatorHost, port, EmulatorAccountName), true
}

// EmulatorAccount returns the emulator account with every endpoint it serves.
func EmulatorAccount() Account {
	acc := Account{
		Name: EmulatorAccountName,
		Key:  AccountKey{KeyName: primaryKeyName, Value: EmulatorAccountKey},
	}
	for _, svc := range Services {
		if url, ok := EmulatorEndpoint(svc); ok {
			acc.Endpoints.set(svc, url)
		}
	}
	return acc
}
