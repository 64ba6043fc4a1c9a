package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
)

const (
	// MaxTagAttempts bounds discriminator draws per allocation.
	MaxTagAttempts = 10

	discriminatorMin  = 1000
	discriminatorSpan = 9000 // 1000..9999
)

// TagChecker reports whether a full tag is already taken.
type TagChecker interface {
	TagExists(ctx context.Context, fullTag string) (bool, error)
}

// Tag is an allocated discriminator and the full tag it forms.
type Tag struct {
	Discriminator string
	FullTag       string
}

// TagAllocator draws random discriminators until one forms a free tag.
type TagAllocator struct {
	intn func(n int) int
}

func NewTagAllocator() *TagAllocator { return &TagAllocator{intn: rand.IntN} }

// FullTag joins a display name and discriminator.
func FullTag(displayName, discriminator string) string {
	return displayName + "#" + discriminator
}

// Allocate returns a free tag for displayName, or ErrExhaustedRetries
// after MaxTagAttempts taken draws. Freedom is only advisory: the unique
// index on full_tag settles races at insert time.
func (a *TagAllocator) Allocate(ctx context.Context, checker TagChecker, displayName string) (Tag, error) {
	for range MaxTagAttempts {
		disc := strconv.Itoa(discriminatorMin + a.intn(discriminatorSpan))
		tag := Tag{Discriminator: disc, FullTag: FullTag(displayName, disc)}
		taken, err := checker.TagExists(ctx, tag.FullTag)
		if err != nil {
			return Tag{}, fmt.Errorf("tag lookup: %w", err)
		}
		if !taken {
			return tag, nil
		}
	}
	return Tag{}, opErr("service.AllocateTag", ErrExhaustedRetries,
		"Could not allocate a unique tag, try another display name")
}
