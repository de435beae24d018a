package roles

import (
	"context"
	"log"

	"ahloulbait/internal/models"
)

type Store interface {
	UserHasRole(ctx context.Context, userID, role string) (bool, error)
}

// Decision is the guard's whole public surface: a boolean. The deny reason
// stays internal so callers cannot leak whether an account exists, lacks the
// role, or hit a lookup failure.
type Decision struct {
	Authorized bool
	reason     string
}

// Guard gates the admin surface. It is evaluated on every privileged
// request — results are never cached, since grants can change between
// requests. Any lookup error denies: a locked-out admin is cheaper than an
// unauthorized one.
type Guard struct {
	store Store
	dir   Directory
}

func NewGuard(store Store, dir Directory) *Guard {
	return &Guard{store: store, dir: dir}
}

func (g *Guard) AuthorizeAdmin(ctx context.Context, user models.User, hasSession bool) Decision {
	if !hasSession || user.ID == "" {
		return Decision{reason: "no session"}
	}
	if g.dir != nil {
		found, isAdmin, err := g.dir.HasAdmin(ctx, user.Email)
		if err != nil {
			log.Printf("role directory lookup failed user=%s: %v (denying)", user.ID, err)
			return Decision{reason: "directory error"}
		}
		if found {
			if !isAdmin {
				return Decision{reason: "directory: not admin"}
			}
			return Decision{Authorized: true}
		}
		// No directory row: fall through to local grants.
	}
	ok, err := g.store.UserHasRole(ctx, user.ID, models.RoleAdmin)
	if err != nil {
		log.Printf("role lookup failed user=%s: %v (denying)", user.ID, err)
		return Decision{reason: "store error"}
	}
	if !ok {
		return Decision{reason: "not admin"}
	}
	return Decision{Authorized: true}
}
