// Package access decides whether an actor may perform an operation on a
// file. It is a pure predicate over inputs the caller already holds: no
// store round-trips, no side effects, no clock reads.
//
// Every read path in the orchestrator funnels through Evaluate; nothing
// bypasses it. Ownership mutations (delete, share, restore) are gated
// separately by owner checks, since sharing grants access, never
// ownership.
package access

import (
	"time"

	"github.com/drivevault/drivevault/pkg/catalog"
)

// Actor identifies the caller of an operation. The zero value is an
// anonymous caller with no capability token.
type Actor struct {
	// UserID is the authenticated user, empty for anonymous callers.
	UserID string

	// Token is the public capability token presented by an anonymous
	// caller, empty otherwise.
	Token string
}

// Anonymous reports whether the actor carries no authenticated identity.
func (a Actor) Anonymous() bool {
	return a.UserID == ""
}

// Evaluate reports whether the actor holds the requested permission on
// the file, given the shares granted on it.
//
// The decision order is fixed: the owner always passes; public files pass
// for reads; otherwise an unexpired, unrevoked share must name the actor
// (by user ID, or by token for anonymous callers) with a covering
// permission. An expired or revoked share denies identically to no share
// at all.
func Evaluate(actor Actor, file *catalog.File, perm catalog.Permission, shares []*catalog.Share, now time.Time) bool {
	if file == nil {
		return false
	}

	if !actor.Anonymous() && actor.UserID == file.OwnerID {
		return true
	}

	if file.Visibility == catalog.VisibilityPublic && perm == catalog.PermissionRead {
		return true
	}

	for _, share := range shares {
		if share.FileID != file.ID {
			continue
		}
		if !share.Active(now) || !share.Covers(perm) {
			continue
		}

		switch share.Grant.Kind {
		case catalog.GrantKindUser:
			if !actor.Anonymous() && share.Grant.UserID == actor.UserID {
				return true
			}
		case catalog.GrantKindPublic:
			if actor.Token != "" && share.Grant.Token == actor.Token {
				return true
			}
		}
	}

	return false
}
