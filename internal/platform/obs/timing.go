package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	TruckIDKey   ctxKey = "truck"
)

// WithRequestID tags ctx with the HTTP request id logged by Time.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithTruckID tags ctx with the truck an agent loop works for.
func WithTruckID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, TruckIDKey, id)
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)
	truckID, _ := ctx.Value(TruckIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s truck=%s op=%s dur=%dms err=%v", reqID, truckID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s truck=%s op=%s dur=%dms", reqID, truckID, name, dur.Milliseconds())
	}
}
