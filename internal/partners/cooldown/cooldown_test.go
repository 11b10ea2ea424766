package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestClaimHonorsWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cd := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cd.Close()
	ctx := context.Background()

	first, err := cd.Claim(ctx, "partner:visitor", time.Hour)
	if err != nil || !first {
		t.Fatalf("expected first claim to win, got %v %v", first, err)
	}

	mr.FastForward(10 * time.Minute)
	second, err := cd.Claim(ctx, "partner:visitor", time.Hour)
	if err != nil || second {
		t.Fatalf("expected duplicate inside window, got %v %v", second, err)
	}

	mr.FastForward(2 * time.Hour)
	third, err := cd.Claim(ctx, "partner:visitor", time.Hour)
	if err != nil || !third {
		t.Fatalf("expected new window after expiry, got %v %v", third, err)
	}
}

func TestClaimSurfacesRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	cd := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cd.Close()

	mr.SetError("READONLY")
	if _, err := cd.Claim(context.Background(), "k", time.Minute); err == nil {
		t.Fatal("expected error from redis")
	}
}

func TestReleaseReopensWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	cd := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer cd.Close()
	ctx := context.Background()

	if ok, err := cd.Claim(ctx, "partner:visitor", time.Hour); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	if err := cd.Release(ctx, "partner:visitor"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := cd.Claim(ctx, "partner:visitor", time.Hour); err != nil || !ok {
		t.Fatalf("expected claim after release, got %v %v", ok, err)
	}
}
