package storage

import "fmt"

// Service is one of the data-plane services a storage account exposes.
type Service int

const (
	Blob Service = iota
	File
	Queue
	Table
)

// Services lists every Service in display order.
var Services = []Service{Blob, File, Queue, Table}

func (s Service) String() string {
	switch s {
	case Blob:
		return "blob"
	case File:
		return "file"
	case Queue:
		return "queue"
	case Table:
		return "table"
	default:
		return fmt.Sprintf("Service(%d)", int(s))
	}
}

// emulatorPort is the local port the storage emulator serves s on.
// The emulator has no file service.
func (s Service) emulatorPort() (int, bool) {
	switch s {
	case Blob:
		return 10000, true
	case Queue:
		return 10001, true
	case Table:
		return 10002, true
	default:
		return 0, false
	}
}
