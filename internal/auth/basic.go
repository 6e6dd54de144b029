package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// AuthorizationHeader is the header BasicStrategy reads.
const AuthorizationHeader = "Authorization"

const basicPrefix = "Basic "

// Basic credential decoding errors. All of them mean "no identity".
var (
	ErrMissingHeader    = errors.New("auth: missing authorization header")
	ErrWrongScheme      = errors.New("auth: authorization scheme is not Basic")
	ErrMalformedBase64  = errors.New("auth: malformed base64 credentials")
	ErrInvalidUTF8      = errors.New("auth: credentials are not valid UTF-8")
	ErrMissingSeparator = errors.New("auth: credentials have no ':' separator")
)

// DecodeError wraps a credential decoding failure with its kind.
type DecodeError struct {
	Kind error
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Kind.Error()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func decodeErr(kind, cause error) error {
	return &DecodeError{Kind: kind, Err: cause}
}

// Credentials is a decoded Basic identifier and secret.
type Credentials struct {
	Identifier string
	Secret     string
}

// DecodeBasic parses an Authorization header value of the form
// "Basic base64(identifier:secret)". The scheme is case-sensitive and the
// decoded text is split at the first colon, so secrets may contain colons.
func DecodeBasic(header string) (Credentials, error) {
	if header == "" {
		return Credentials{}, decodeErr(ErrMissingHeader, nil)
	}

	encoded, ok := strings.CutPrefix(header, basicPrefix)
	if !ok {
		return Credentials{}, decodeErr(ErrWrongScheme, nil)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, decodeErr(ErrMalformedBase64, err)
	}
	if !utf8.Valid(raw) {
		return Credentials{}, decodeErr(ErrInvalidUTF8, nil)
	}

	identifier, secret, found := strings.Cut(string(raw), ":")
	if !found {
		return Credentials{}, decodeErr(ErrMissingSeparator, nil)
	}
	return Credentials{Identifier: identifier, Secret: secret}, nil
}

// DecodeBasicResult is DecodeBasic as a mo.Result.
func DecodeBasicResult(header string) mo.Result[Credentials] {
	return mo.TupleToResult(DecodeBasic(header))
}

// EncodeBasic builds the header value DecodeBasic accepts.
func EncodeBasic(identifier, secret string) string {
	return basicPrefix + base64.StdEncoding.EncodeToString([]byte(identifier+":"+secret))
}

// BasicStrategy authenticates every protected request with Basic credentials.
type BasicStrategy struct {
	guard     *PathGuard
	directory Directory
}

// NewBasicStrategy creates a BasicStrategy.
func NewBasicStrategy(guard *PathGuard, directory Directory) *BasicStrategy {
	return &BasicStrategy{guard: guard, directory: directory}
}

// Type returns TypeBasic.
func (b *BasicStrategy) Type() Type { return TypeBasic }

// IsProtected consults the path guard.
func (b *BasicStrategy) IsProtected(path string) bool {
	return b.guard.IsProtected(path)
}

// HasCredential reports whether an Authorization header is present.
func (b *BasicStrategy) HasCredential(req Request) bool {
	return req.Header(AuthorizationHeader).IsPresent()
}

// ExtractIdentity decodes the Authorization header and asks the directory
// to verify it.
func (b *BasicStrategy) ExtractIdentity(ctx context.Context, req Request) mo.Option[Identity] {
	creds, err := DecodeBasic(req.Header(AuthorizationHeader).OrEmpty())
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("basic credentials rejected")
		return mo.None[Identity]()
	}
	return b.directory.FindByCredentials(ctx, creds.Identifier, creds.Secret)
}

// CreateSession is not supported by Basic authentication.
func (b *BasicStrategy) CreateSession(context.Context, string) (string, error) {
	return "", ErrUnsupported
}

// EndSession never ends anything; Basic has no sessions.
func (b *BasicStrategy) EndSession(context.Context, Request) (bool, error) {
	return false, nil
}
