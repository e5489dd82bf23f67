package access

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/drivevault/drivevault/pkg/catalog"
)

var now = time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)

func privateFile(owner string) *catalog.File {
	return &catalog.File{
		ID:         uuid.New(),
		Name:       "secret.txt",
		OwnerID:    owner,
		Visibility: catalog.VisibilityPrivate,
	}
}

func share(fileID uuid.UUID, grant catalog.Grant, expires *time.Time) *catalog.Share {
	return &catalog.Share{
		ID:         uuid.New(),
		FileID:     fileID,
		Grant:      grant,
		Permission: catalog.PermissionRead,
		GrantedBy:  "alice",
		ExpiresAt:  expires,
		CreatedAt:  now.Add(-time.Hour),
	}
}

func TestEvaluate_Owner(t *testing.T) {
	file := privateFile("alice")

	assert.True(t, Evaluate(Actor{UserID: "alice"}, file, catalog.PermissionRead, nil, now))
	assert.False(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, nil, now))
	assert.False(t, Evaluate(Actor{}, file, catalog.PermissionRead, nil, now))
}

func TestEvaluate_PublicVisibility(t *testing.T) {
	file := privateFile("alice")
	file.Visibility = catalog.VisibilityPublic

	assert.True(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, nil, now))
	assert.True(t, Evaluate(Actor{}, file, catalog.PermissionRead, nil, now))
}

func TestEvaluate_UserShare(t *testing.T) {
	file := privateFile("alice")
	grant := share(file.ID, catalog.UserGrant("bob"), nil)

	shares := []*catalog.Share{grant}
	assert.True(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, shares, now))
	assert.False(t, Evaluate(Actor{UserID: "carol"}, file, catalog.PermissionRead, shares, now))

	// A user grant never serves anonymous callers.
	assert.False(t, Evaluate(Actor{}, file, catalog.PermissionRead, shares, now))
}

func TestEvaluate_PublicToken(t *testing.T) {
	file := privateFile("alice")
	grant := share(file.ID, catalog.PublicGrant("tok-valid"), nil)
	shares := []*catalog.Share{grant}

	assert.True(t, Evaluate(Actor{Token: "tok-valid"}, file, catalog.PermissionRead, shares, now))
	assert.False(t, Evaluate(Actor{Token: "tok-wrong"}, file, catalog.PermissionRead, shares, now))
	assert.False(t, Evaluate(Actor{}, file, catalog.PermissionRead, shares, now))
}

func TestEvaluate_ExpiryAndRevocation(t *testing.T) {
	file := privateFile("alice")

	expired := now.Add(-time.Minute)
	expiredShare := share(file.ID, catalog.UserGrant("bob"), &expired)
	assert.False(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, []*catalog.Share{expiredShare}, now))

	// Expiring exactly now denies; only a future expiry grants.
	boundary := share(file.ID, catalog.UserGrant("bob"), &now)
	assert.False(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, []*catalog.Share{boundary}, now))

	future := now.Add(time.Minute)
	liveShare := share(file.ID, catalog.UserGrant("bob"), &future)
	assert.True(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, []*catalog.Share{liveShare}, now))

	revoked := share(file.ID, catalog.UserGrant("bob"), nil)
	revokedAt := now.Add(-time.Minute)
	revoked.RevokedAt = &revokedAt
	assert.False(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, []*catalog.Share{revoked}, now))
}

func TestEvaluate_ForeignShareIgnored(t *testing.T) {
	file := privateFile("alice")

	// A share on a different file must not grant anything here.
	foreign := share(uuid.New(), catalog.UserGrant("bob"), nil)
	assert.False(t, Evaluate(Actor{UserID: "bob"}, file, catalog.PermissionRead, []*catalog.Share{foreign}, now))
}
