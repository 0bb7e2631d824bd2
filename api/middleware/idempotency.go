package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-engine/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-engine/pkg/redis"
)

// IdempotencyHeader names the client-chosen replay key.
const IdempotencyHeader = "Idempotency-Key"

const (
	defaultIdempotencyTTL = 24 * time.Hour
	submitIdempotencyTTL  = 7 * 24 * time.Hour

	// a claim outlives the slowest upstream submit
	inFlightClaimTTL = 2 * time.Minute
)

type idempotentRoute struct {
	method      string
	match       func(path string) bool
	ttl         time.Duration
	keyRequired bool
}

// Only submit insists on a key: replaying it twice would place two orders.
var idempotentRoutes = []idempotentRoute{
	{method: http.MethodPost, match: pathIs("/api/v1/checkout/submit"), ttl: submitIdempotencyTTL, keyRequired: true},
	{method: http.MethodPost, match: pathIs("/api/v1/checkout/addresses"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: pathIs("/api/v1/identity/register"), ttl: defaultIdempotencyTTL},
	{method: http.MethodPost, match: pathWithin("/api/v1/cart/items/", "/quantity"), ttl: defaultIdempotencyTTL},
}

type replayRecord struct {
	InFlight    bool   `json:"in_flight,omitempty"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

// Idempotency replays the first completed response for a repeated key. The key
// is claimed before the handler runs so a concurrent duplicate is refused
// instead of executed. Server failures release the claim to allow a retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, ok := lookupRoute(r)
			if !ok || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if route.keyRequired {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(body)
			key := store.IdempotencyKey(replayScope(r), clientKey)

			claim, _ := json.Marshal(replayRecord{InFlight: true, RequestHash: fingerprint})
			claimed, err := store.SetNX(r.Context(), key, string(claim), inFlightClaimTTL)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				replayExisting(w, r, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			status := capture.statusOrOK()
			if status >= http.StatusInternalServerError {
				if err := store.Del(r.Context(), key); err != nil {
					logError(r.Context(), logg, "release idempotency claim", err)
				}
				return
			}

			payload, err := json.Marshal(replayRecord{
				RequestHash: fingerprint,
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
			})
			if err != nil {
				logError(r.Context(), logg, "encode idempotency record", err)
				return
			}
			if err := store.Set(r.Context(), key, string(payload), route.ttl); err != nil {
				logError(r.Context(), logg, "persist idempotency record", err)
			}
		})
	}
}

func replayExisting(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	stored, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) {
		// the claim expired between SetNX and Get
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeSubmitPending, "request is being processed, retry shortly"))
		return
	}
	if err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var record replayRecord
	if err := json.Unmarshal([]byte(stored), &record); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	switch {
	case record.RequestHash != fingerprint:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case record.InFlight:
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeSubmitPending, "request is being processed, retry shortly"))
	default:
		if record.ContentType != "" {
			w.Header().Set("Content-Type", record.ContentType)
		}
		w.Header().Set("Idempotent-Replay", "true")
		w.WriteHeader(record.Status)
		if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
			_, _ = w.Write(decoded)
		}
	}
}

// replayScope keeps one session's keys from colliding with another's.
func replayScope(r *http.Request) string {
	return strings.Join([]string{SessionIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func requestFingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func lookupRoute(r *http.Request) (idempotentRoute, bool) {
	candidates := []string{r.URL.Path}
	// a subrouter only sees a partial pattern, so the concrete path is tried too
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			candidates = append([]string{pattern}, candidates...)
		}
	}
	for _, path := range candidates {
		for _, route := range idempotentRoutes {
			if route.method == r.Method && route.match(path) {
				return route, true
			}
		}
	}
	return idempotentRoute{}, false
}

func pathIs(want string) func(string) bool {
	return func(path string) bool { return path == want }
}

func pathWithin(prefix, suffix string) func(string) bool {
	return func(path string) bool {
		return strings.HasPrefix(path, prefix) && strings.HasSuffix(path, suffix)
	}
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) statusOrOK() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func logError(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if logg == nil || err == nil {
		return
	}
	logg.Error(ctx, msg, err)
}
