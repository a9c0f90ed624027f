package branchfs

import (
	"golang.org/x/sys/unix"
)

// Getxattr passes the read straight through to whatever currently backs
// logical (base file or some ancestor's delta entry), the way
// fs.loopbackNode's Getxattr delegates to the underlying filesystem
// (spec §7 "xattr pass-through"). The raw syscall error (e.g. ERANGE when
// dest is too small, ENODATA when the attribute is unset) is returned
// unwrapped so ToErrno passes it through verbatim.
func (m *Mount) Getxattr(view *Branch, logical, attr string, dest []byte) (int, error) {
	v, err := m.Resolve(view, logical)
	if err != nil {
		return 0, err
	}
	if !v.Found {
		return 0, newErr(KindNotFound, "getxattr", logical)
	}
	return unix.Lgetxattr(v.AbsPath, attr, dest)
}

// Listxattr lists the extended attribute names on logical's current
// backing path.
func (m *Mount) Listxattr(view *Branch, logical string, dest []byte) (int, error) {
	v, err := m.Resolve(view, logical)
	if err != nil {
		return 0, err
	}
	if !v.Found {
		return 0, newErr(KindNotFound, "listxattr", logical)
	}
	return unix.Llistxattr(v.AbsPath, dest)
}

// Setxattr materializes logical into view's delta (spec §4.3: any
// mutation triggers copy-on-write, and setting an attribute is a
// mutation of the backing file) then sets the attribute there.
func (m *Mount) Setxattr(view *Branch, logical, attr string, data []byte, flags uint32) error {
	dst, err := m.Materialize(view, logical)
	if err != nil {
		return err
	}
	return unix.Lsetxattr(dst, attr, data, int(flags))
}

// Removexattr materializes logical into view's delta then removes the
// attribute there.
func (m *Mount) Removexattr(view *Branch, logical, attr string) error {
	dst, err := m.Materialize(view, logical)
	if err != nil {
		return err
	}
	return unix.Lremovexattr(dst, attr)
}
