package logging

import (
	"context"

	"github.com/google/uuid"
)

type debugTagKeyType struct{}

// debugTagKey names the field carrying the debug tag on entries logged in debug mode.
const debugTagKey = "debug"

// EnableDebugMode returns a context under which the C* logging methods log regardless of the
// logger's level. Entries logged this way carry tag in a "debug" field; an empty tag is replaced
// by a random one.
func EnableDebugMode(ctx context.Context, tag string) context.Context {
	if tag == "" {
		tag = uuid.NewString()[:8]
	}
	return context.WithValue(ctx, debugTagKeyType{}, tag)
}

// IsDebugMode reports whether ctx came from EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return debugTag(ctx) != ""
}

func debugTag(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	tag, _ := ctx.Value(debugTagKeyType{}).(string)
	return tag
}
