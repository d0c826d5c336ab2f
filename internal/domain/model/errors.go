package model

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindBridgeMissing    ErrorKind = "BRIDGE_MISSING"
	KindNoDevice         ErrorKind = "NO_DEVICE"
	KindUnauthorized     ErrorKind = "UNAUTHORIZED"
	KindCommandFailed    ErrorKind = "COMMAND_FAILED"
	KindTimeout          ErrorKind = "TIMEOUT"
	KindCatalogParse     ErrorKind = "CATALOG_PARSE"
	KindBackupParse      ErrorKind = "BACKUP_PARSE"
	KindUserMissing      ErrorKind = "USER_MISSING"
	KindPackageMissing   ErrorKind = "PACKAGE_MISSING"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
)

var (
	ErrBridgeMissing    = &Error{Kind: KindBridgeMissing}
	ErrNoDevice         = &Error{Kind: KindNoDevice}
	ErrUnauthorized     = &Error{Kind: KindUnauthorized}
	ErrCommandFailed    = &Error{Kind: KindCommandFailed}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrCatalogParse     = &Error{Kind: KindCatalogParse}
	ErrBackupParse      = &Error{Kind: KindBackupParse}
	ErrUserMissing      = &Error{Kind: KindUserMissing}
	ErrPackageMissing   = &Error{Kind: KindPackageMissing}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
)

// Error carries the failure kind together with whatever the bridge or the
// file layer reported. Compare kinds with errors.Is against the Err* values.
type Error struct {
	Kind    ErrorKind
	Stdout  string
	Stderr  string
	UserID  uint
	Package string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	switch e.Kind {
	case KindUserMissing:
		fmt.Fprintf(&b, ": user %d", e.UserID)
	case KindPackageMissing:
		fmt.Fprintf(&b, ": %s for user %d", e.Package, e.UserID)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if text := e.Output(); text != "" {
		b.WriteString(": ")
		b.WriteString(text)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Output is the bridge text that best explains the failure. The bridge
// sometimes prints errors on stdout, so stdout wins when present.
func (e *Error) Output() string {
	if s := strings.TrimSpace(e.Stdout); s != "" {
		return s
	}
	return strings.TrimSpace(e.Stderr)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind. A timeout is also a failed command.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	if e.Kind == t.Kind {
		return true
	}
	return e.Kind == KindTimeout && t.Kind == KindCommandFailed
}

func NewUserMissing(id uint) error {
	return &Error{Kind: KindUserMissing, UserID: id}
}

func NewPackageMissing(name string, userID uint) error {
	return &Error{Kind: KindPackageMissing, Package: name, UserID: userID}
}

func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
