//go:build !linux

package shmregion

func open(name string, size int, create bool) (*Region, error) {
	return nil, ErrUnsupportedPlatform
}

func closeRegion(r *Region) error {
	return ErrUnsupportedPlatform
}

func unlink(name string) error {
	return ErrUnsupportedPlatform
}

func stat(r *Region) (Identity, error) {
	return Identity{}, ErrUnsupportedPlatform
}

// CurrentIdentity is unavailable outside Linux.
func CurrentIdentity(name string) (Identity, error) {
	return Identity{}, ErrUnsupportedPlatform
}
