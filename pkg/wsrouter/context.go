package wsrouter

import "context"

type frameKey struct{}

// frame describes the message being dispatched.
type frame struct {
	messageType string
	size        int
}

func withFrame(ctx context.Context, f frame) context.Context {
	return context.WithValue(ctx, frameKey{}, f)
}

// MessageType returns the type of the frame being handled, or "" outside a handler.
func MessageType(ctx context.Context) string {
	f, _ := ctx.Value(frameKey{}).(frame)
	return f.messageType
}

// FrameSize returns the raw size in bytes of the frame being handled.
func FrameSize(ctx context.Context) int {
	f, _ := ctx.Value(frameKey{}).(frame)
	return f.size
}
