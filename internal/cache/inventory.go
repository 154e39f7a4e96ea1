package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix         = "user:%d"
	PersonaListKeyPrefix  = "personas:user:%d"
	VerificationKeyPrefix = "verification:%d"
)

const (
	UserTTL         = 5 * time.Minute
	PersonaListTTL  = 10 * time.Minute
	VerificationTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PersonaListKey(userID uint) string {
	return fmt.Sprintf(PersonaListKeyPrefix, userID)
}

func VerificationKey(userID uint) string {
	return fmt.Sprintf(VerificationKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, VerificationKey(userID))
}

func InvalidatePersonaList(ctx context.Context, userID uint) {
	Invalidate(ctx, PersonaListKey(userID))
}
