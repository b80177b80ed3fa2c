// Package security validates filesystem permissions on the shared
// objects, the one security concern spec.md's trust model leaves in
// scope ("trust boundary is the local host and filesystem permissions
// on the shared objects", §1 Non-goals). It replaces the teacher's
// pkg/security.SecurityProvider (plugin signature validation, mTLS
// channel negotiation — neither applicable, since this system has no
// plugins and no network channel) with a permission-mode check.
package security

import (
	"fmt"
	"os"
)

// wantMode is the permission bits every shared object and lock file
// should carry: owner read/write only, matching the 0600 used when
// creating them in internal/shmregion, internal/ipcsem, and
// internal/singleton.
const wantMode = 0o600

// ValidatePermissions stats path and reports an error if its mode
// grants access beyond owner read/write, which would let other local
// users on the host read or corrupt in-flight requests.
func ValidatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("security: stat %s: %w", path, err)
	}
	if mode := info.Mode().Perm(); mode&^wantMode != 0 {
		return fmt.Errorf("security: %s has mode %04o, want %04o or stricter", path, mode, wantMode)
	}
	return nil
}
