package transport

import "fmt"

// Stable object names, exact strings per spec.md §6.
const (
	ShmName          = "/ipc_shm"
	MutexName        = "/ipc_mutex"
	ServerNotifyName = "/ipc_server_notify"
	SlotSemPrefix    = "/ipc_slot_"

	SingletonLockPath = "/tmp/ipc_server.lock"
	GenerationPath    = "/tmp/ipc_server.generation"
)

// SlotSemName returns the name of the per-slot semaphore for slot i.
func SlotSemName(i int) string {
	return fmt.Sprintf("%s%d", SlotSemPrefix, i)
}
