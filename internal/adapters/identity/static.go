package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/mindwell-app/mindwell-backend/internal/domain"
)

// StaticVerifier is the local-mode verifier: the bearer token is taken
// literally as "uid" or "uid:email". Never use outside development.
type StaticVerifier struct{}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{}
}

func (v *StaticVerifier) Verify(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	uid, email, _ := strings.Cut(token, ":")
	if uid == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no uid", domain.ErrUnauthenticated)
	}

	return domain.Identity{StableID: uid, LegacyAlias: email}, nil
}
