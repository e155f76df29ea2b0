package placeholders

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	platformid "github.com/endalk200/better-webhook-sub002/internal/platform/id"
	platformtime "github.com/endalk200/better-webhook-sub002/internal/platform/time"
)

// Recognized placeholder tokens. A token is matched at a `$` boundary and,
// except for the `$env:` and provider-prefixed forms, must not be followed
// by another identifier character (see tokenBoundaryOK).
const (
	tokenUUID         = "$uuid"
	tokenUnixTime     = "$time:unix"
	tokenRFC3339Time  = "$time:rfc3339"
	tokenGitHubSHA256 = "$github:x-hub-signature-256"

	prefixEnv    = "$env:"
	prefixTime   = "$time:"
	prefixGitHub = "$github:"

	// legacyGitHubSignatureValue is a pre-$-token header value still honored
	// for the one provider/header combination that used it historically.
	legacyGitHubSignatureValue = "placeholder"

	rfc3339Layout = "2006-01-02T15:04:05Z07:00"
)

const (
	providerGitHub       = "github"
	githubSignatureHdr   = "x-hub-signature-256"
	githubSignaturePrefx = "sha256="
)

var (
	ErrMissingEnvironmentVariable      = errors.New("placeholder environment variable is not set")
	ErrEnvironmentPlaceholdersDisabled = errors.New("environment placeholders are disabled")
	ErrMissingSecret                   = errors.New("provider signing secret is required")
	ErrUnsupportedTimeFormat           = errors.New("time placeholder format is not supported")
	ErrUnsupportedProviderToken        = errors.New("provider placeholder token is not supported")
)

// HeaderContext carries the provider and request body a header value's
// placeholder resolution may depend on (currently only GitHub's HMAC
// signature header does).
type HeaderContext struct {
	Provider string
	Secret   string
	Body     []byte
}

// ResolverOption mutates a Resolver at construction time.
type ResolverOption func(*Resolver)

// WithEnvironmentPlaceholdersEnabled toggles `$env:NAME` support.
func WithEnvironmentPlaceholdersEnabled(enabled bool) ResolverOption {
	return func(r *Resolver) {
		if r != nil {
			r.allowEnv = enabled
		}
	}
}

// Resolver substitutes placeholder tokens in a template body and its header
// values at replay/send time.
type Resolver struct {
	clock     platformtime.Clock
	ids       platformid.Generator
	lookupEnv func(string) (string, bool)
	allowEnv  bool
}

func NewResolver(clock platformtime.Clock, ids platformid.Generator, lookupEnv func(string) (string, bool), opts ...ResolverOption) *Resolver {
	if clock == nil {
		clock = platformtime.SystemClock{}
	}
	if ids == nil {
		ids = platformid.UUIDGenerator{}
	}
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	r := &Resolver{clock: clock, ids: ids, lookupEnv: lookupEnv}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithEnvironmentPlaceholdersEnabled returns a copy of r with environment
// placeholder support toggled, leaving r itself untouched.
func (r *Resolver) WithEnvironmentPlaceholdersEnabled(enabled bool) *Resolver {
	if r == nil {
		return nil
	}
	clone := *r
	clone.allowEnv = enabled
	return &clone
}

// ResolveBody walks a JSON document's string leaves, resolving any
// placeholder tokens found, and re-encodes the result.
func (r *Resolver) ResolveBody(body json.RawMessage) ([]byte, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return []byte{}, nil
	}
	var decoded interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	resolved, err := r.walk(decoded)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resolved)
}

// ResolveHeaderValue resolves a single header's value, special-casing
// GitHub's signature header (both its `$github:x-hub-signature-256` token
// and the legacy literal `"placeholder"` value) before falling back to
// generic token interpolation.
func (r *Resolver) ResolveHeaderValue(key, value string, hctx HeaderContext) (string, error) {
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if wantsGitHubSignature(key, value, strings.TrimSpace(hctx.Provider)) {
		return signGitHubPayload(hctx.Body, hctx.Secret)
	}
	resolved, err := r.interpolate(value)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(resolved, prefixGitHub) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProviderToken, resolved)
	}
	return resolved, nil
}

func (r *Resolver) walk(value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case string:
		return r.interpolate(typed)
	case []interface{}:
		out := make([]interface{}, len(typed))
		for i, item := range typed {
			resolved, err := r.walk(item)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(typed))
		for k, v := range typed {
			resolved, err := r.walk(v)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

// interpolate replaces every unescaped `$token` occurrence in value. `\$`
// escapes a literal dollar sign.
func (r *Resolver) interpolate(value string) (string, error) {
	if !strings.Contains(value, "$") {
		return value, nil
	}

	var out strings.Builder
	out.Grow(len(value))

	for i := 0; i < len(value); {
		switch {
		case value[i] == '\\' && i+1 < len(value) && value[i+1] == '$':
			out.WriteByte('$')
			i += 2
		case value[i] != '$':
			out.WriteByte(value[i])
			i++
		default:
			replacement, consumed, matched, err := r.matchToken(value[i:])
			if err != nil {
				return "", err
			}
			if !matched {
				out.WriteByte('$')
				i++
				continue
			}
			out.WriteString(replacement)
			i += consumed
		}
	}
	return out.String(), nil
}

func (r *Resolver) matchToken(remainder string) (replacement string, consumed int, matched bool, err error) {
	switch {
	case tokenBoundaryOK(remainder, tokenUUID):
		return r.ids.NewID(), len(tokenUUID), true, nil
	case tokenBoundaryOK(remainder, tokenUnixTime):
		return fmt.Sprintf("%d", r.clock.Now().UTC().Unix()), len(tokenUnixTime), true, nil
	case tokenBoundaryOK(remainder, tokenRFC3339Time):
		return r.clock.Now().UTC().Format(rfc3339Layout), len(tokenRFC3339Time), true, nil
	case strings.HasPrefix(remainder, prefixEnv):
		return r.matchEnvToken(remainder)
	case strings.HasPrefix(remainder, prefixTime):
		return "", 0, false, fmt.Errorf("%w: %s", ErrUnsupportedTimeFormat, tokenLiteral(remainder))
	case strings.HasPrefix(remainder, prefixGitHub):
		return "", 0, false, fmt.Errorf("%w: %s", ErrUnsupportedProviderToken, tokenLiteral(remainder))
	default:
		return "", 0, false, nil
	}
}

func (r *Resolver) matchEnvToken(remainder string) (string, int, bool, error) {
	rest := remainder[len(prefixEnv):]
	trimmed := strings.TrimLeft(rest, " \t")
	skipped := len(rest) - len(trimmed)
	if trimmed == "" {
		return "", 0, false, fmt.Errorf("%w: variable name cannot be empty", ErrMissingEnvironmentVariable)
	}

	nameLen := 0
	for nameLen < len(trimmed) && isEnvVarByte(trimmed[nameLen]) {
		nameLen++
	}
	if nameLen == 0 {
		return "", 0, false, nil
	}

	name := trimmed[:nameLen]
	if !r.allowEnv {
		return "", 0, false, fmt.Errorf("%w: %s", ErrEnvironmentPlaceholdersDisabled, name)
	}
	value, ok := r.lookupEnv(name)
	if !ok {
		return "", 0, false, fmt.Errorf("%w: %s", ErrMissingEnvironmentVariable, name)
	}
	return value, len(prefixEnv) + skipped + nameLen, true, nil
}

func tokenBoundaryOK(remainder, token string) bool {
	if !strings.HasPrefix(remainder, token) {
		return false
	}
	if len(token) >= len(remainder) {
		return true
	}
	return !isEnvVarByte(remainder[len(token)])
}

func isEnvVarByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// tokenLiteral extracts the `$word:word-ish` prefix of an unmatched token,
// for inclusion in an error message.
func tokenLiteral(remainder string) string {
	if remainder == "" || remainder[0] != '$' {
		return remainder
	}
	end := 1
	for end < len(remainder) {
		c := remainder[end]
		isWordChar := c == ':' || c == '_' || c == '-' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isWordChar {
			break
		}
		end++
	}
	return remainder[:end]
}

func wantsGitHubSignature(key, value, provider string) bool {
	if !strings.EqualFold(provider, providerGitHub) {
		return false
	}
	if strings.EqualFold(value, tokenGitHubSHA256) {
		return true
	}
	return strings.EqualFold(key, githubSignatureHdr) && strings.EqualFold(value, legacyGitHubSignatureValue)
}

func signGitHubPayload(body []byte, secret string) (string, error) {
	trimmedSecret := strings.TrimSpace(secret)
	if trimmedSecret == "" {
		return "", ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(trimmedSecret))
	if _, err := mac.Write(body); err != nil {
		return "", err
	}
	return githubSignaturePrefx + hex.EncodeToString(mac.Sum(nil)), nil
}
