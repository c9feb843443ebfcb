package services

import (
	"fmt"

	"github.com/seralia/feedsync/pkg/internal/storage"
)

const offlineFlagKey = "flags/offline_mode"

// SetOfflineFlag persists the user-facing offline-mode toggle.
func SetOfflineFlag(st storage.Store, enabled bool) error {
	value := []byte("false")
	if enabled {
		value = []byte("true")
	}
	if err := st.Put(offlineFlagKey, value); err != nil {
		return fmt.Errorf("unable to persist offline flag: %v", err)
	}
	return nil
}

// GetOfflineFlag reads the persisted toggle; a missing record means off.
func GetOfflineFlag(st storage.Store) (bool, error) {
	data, err := st.Get(offlineFlagKey)
	if err != nil {
		if err == storage.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("unable to read offline flag: %v", err)
	}
	return string(data) == "true", nil
}
