package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix         = "user:%d"
	TenantKeyPrefix       = "tenant:%s"
	RoleCatalogKeyPrefix  = "tenant:%d:roles"
	ActiveTenantKeyPrefix = "active_tenant:%d"
	PasscodeKeyPrefix     = "invite_otp:%s"
)

const (
	UserTTL        = 5 * time.Minute
	TenantTTL      = 10 * time.Minute
	RoleCatalogTTL = 10 * time.Minute
	PasscodeTTL    = 15 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TenantKey(code string) string {
	return fmt.Sprintf(TenantKeyPrefix, code)
}

func RoleCatalogKey(tenantID uint) string {
	return fmt.Sprintf(RoleCatalogKeyPrefix, tenantID)
}

func ActiveTenantKey(userID uint) string {
	return fmt.Sprintf(ActiveTenantKeyPrefix, userID)
}

func PasscodeKey(passcode string) string {
	return fmt.Sprintf(PasscodeKeyPrefix, passcode)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTenant(ctx context.Context, code string) {
	Invalidate(ctx, TenantKey(code))
}

func InvalidateRoleCatalog(ctx context.Context, tenantID uint) {
	Invalidate(ctx, RoleCatalogKey(tenantID))
}
