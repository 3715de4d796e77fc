package service

import (
	"errors"
	"fmt"
)

// Kind classifies failures the API reports to callers. Anything that is not
// an *Error is a server error.
type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// User-facing messages. Clients match on these strings.
const (
	MsgInvalidQRCode      = "QR code invalide"
	MsgInvalidDeviceBrand = "Marque d'appareil invalide"
	MsgInvalidDeviceModel = "Modèle d'appareil invalide"
	MsgBadgeNotFound      = "Badge non trouvé"
	MsgBadgeInactive      = "Badge inactif"
	MsgBadgeExpired       = "Badge expiré"
	MsgQRCodeExists       = "Ce QR code existe déjà"
	MsgAccessNotFound     = "Accès non trouvé"

	MsgInvalidEmail       = "Email invalide"
	MsgInvalidName        = "Nom invalide"
	MsgInvalidPassword    = "Mot de passe invalide (minimum 8 caractères)"
	MsgEmailTaken         = "Cet email est déjà utilisé"
	MsgInvalidCredentials = "Identifiants invalides"
	MsgUserNotFound       = "Utilisateur non trouvé"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// AsError extracts the classified failure from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a classified failure of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
