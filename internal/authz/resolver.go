package authz

import (
	"context"
	"errors"

	"github.com/suteetoe/learnhub/internal/model"
	"github.com/suteetoe/learnhub/internal/principal"
	"github.com/suteetoe/learnhub/pkg/database"
	"github.com/suteetoe/learnhub/pkg/jwtutil"
	"gorm.io/gorm"
)

// ErrPrincipalNotFound means the credential referenced a user that no longer
// exists or is inactive. Maps to 401 like the other credential errors.
var ErrPrincipalNotFound = errors.New("principal not found")

// ResolvePrincipal turns validated access-token claims into a Principal. The
// permission-code set is re-fetched from the role/permission store on every
// request rather than trusted from the token, so a revoked grant takes effect
// on the next request instead of at token expiry (staleness window: one
// request).
//
// The lookups run on a system session: identity must be resolvable before any
// tenant context exists.
func ResolvePrincipal(ctx context.Context, db *gorm.DB, claims *jwtutil.AccessClaims) (*principal.Principal, error) {
	tx, release, err := database.SystemSession(ctx, db)
	if err != nil {
		return nil, err
	}

	p, err := resolve(tx, claims)
	if rerr := release(err); rerr != nil && err == nil {
		return nil, rerr
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func resolve(tx *gorm.DB, claims *jwtutil.AccessClaims) (*principal.Principal, error) {
	var user model.User
	if err := tx.Where("id = ? AND active = ?", claims.UserID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, err
	}

	var roles []model.Role
	if err := tx.
		Joins("JOIN user_roles ON user_roles.role_id = roles.id AND user_roles.deleted_at IS NULL").
		Where("user_roles.user_id = ? AND roles.active = ?", user.ID, true).
		Find(&roles).Error; err != nil {
		return nil, err
	}

	roleIDs := make([]uint, 0, len(roles))
	roleCodes := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
		roleCodes = append(roleCodes, r.Code)
	}

	perms := make(map[string]struct{})
	if len(roleIDs) > 0 {
		var codes []string
		if err := tx.Model(&model.Permission{}).
			Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
			Where("role_permissions.role_id IN ?", roleIDs).
			Pluck("permissions.code", &codes).Error; err != nil {
			return nil, err
		}
		for _, code := range codes {
			perms[code] = struct{}{}
		}
	}

	_, bypass := perms[PermTenantsBypass]

	return &principal.Principal{
		UserID:      user.ID,
		Email:       user.Email,
		TenantID:    user.TenantID,
		Roles:       roleCodes,
		Permissions: perms,
		Bypass:      bypass,
	}, nil
}
