package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	domainerrors "github.com/tsundokudragon/dragon-server/internal/errors"
)

// Pagination defaults.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// PaginationParams contains pagination request parameters.
type PaginationParams struct {
	Limit  int    // The number of items per page (defaults to 100 with a maximum of 1000)
	Cursor string // Opaque cursor for next page (empty for first page)
}

// PaginatedResult contains paginated data and metadata.
type PaginatedResult[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"` // Empty if no more pages
	HasMore    bool   `json:"hasMore"`
	Total      int    `json:"total,omitempty"` // Optional: total count (costs an extra scan)
}

// DefaultPaginationParams returns sensible defaults.
func DefaultPaginationParams() PaginationParams {
	return PaginationParams{
		Limit:  DefaultPageLimit,
		Cursor: "",
	}
}

// Validate checks and corrects pagination parameters.
func (p *PaginationParams) Validate() {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}

	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// CursorCodec turns the last returned key of a page into an opaque token
// and back.
//
// A token is base64url(JSON key) + "." + base64url(HMAC-SHA256(payload)).
// The same key always encodes to the same token for a given secret.
type CursorCodec struct {
	secret []byte
}

// NewCursorCodec creates a codec signing cursors with secret.
func NewCursorCodec(secret []byte) *CursorCodec {
	return &CursorCodec{secret: secret}
}

// Encode creates an opaque cursor from a key.
func (c *CursorCodec) Encode(key Key) string {
	payload, err := json.Marshal(key)
	if err != nil {
		// Key is two strings; marshaling cannot fail.
		panic(fmt.Sprintf("marshal cursor key: %v", err))
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + base64.RawURLEncoding.EncodeToString(c.sign(body))
}

// Decode verifies a cursor and returns the key it encodes. An empty cursor
// means "start from the beginning" and decodes to nil. The key must belong
// to partition pk and begin with prefix.
func (c *CursorCodec) Decode(cursor, pk, prefix string) (*Key, error) {
	if cursor == "" {
		return nil, nil
	}

	body, sig, ok := strings.Cut(cursor, ".")
	if !ok || body == "" || sig == "" {
		return nil, invalidCursor("malformed token")
	}

	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, invalidCursor("malformed signature")
	}
	if !hmac.Equal(mac, c.sign(body)) {
		return nil, invalidCursor("signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, invalidCursor("malformed payload")
	}

	var key Key
	if err := json.Unmarshal(payload, &key); err != nil {
		return nil, invalidCursor("malformed payload")
	}
	if key.PK != pk || !strings.HasPrefix(key.SK, prefix) {
		return nil, invalidCursor("cursor belongs to a different listing")
	}
	return &key, nil
}

func (c *CursorCodec) sign(body string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}

func invalidCursor(reason string) error {
	return domainerrors.ValidationWithDetails("invalid cursor", map[string]string{"cursor": reason})
}
