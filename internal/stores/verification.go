package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersionV1 = 1
	maxCodeHashLen           = 1<<16 - 1
)

var (
	// ErrChallengeNotFound means no live challenge exists for the email: never
	// issued, expired, superseded or already consumed.
	ErrChallengeNotFound = errors.New("verification challenge not found")
	// ErrLedgerUnavailable wraps Redis transport failures.
	ErrLedgerUnavailable = errors.New("verification ledger unavailable")
)

// compareAndDeleteLua deletes KEYS[1] only while it still holds ARGV[1], so a
// challenge observed by one caller can be consumed at most once even when a
// concurrent issue replaced it in between.
var compareAndDeleteLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if data == ARGV[1] then
  redis.call('DEL', KEYS[1])
  return 1
end
return 0
`)

// Challenge is one outstanding email verification code. Only the hash of the
// code is stored.
type Challenge struct {
	Email     string
	CodeHash  string
	CreatedAt time.Time
	ExpiresAt time.Time

	raw []byte
}

// VerificationLedger keeps at most one live Challenge per email in Redis.
type VerificationLedger struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewVerificationLedger returns a ledger writing keys as <prefix>:<email>.
func NewVerificationLedger(redisClient redis.UniversalClient, prefix string) *VerificationLedger {
	if prefix == "" {
		prefix = "otp"
	}
	return &VerificationLedger{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

func (l *VerificationLedger) key(email string) string {
	return l.prefix + ":" + email
}

// Put stores c, replacing any previous challenge for the same email in a
// single SET. The key expires at c.ExpiresAt.
func (l *VerificationLedger) Put(ctx context.Context, c *Challenge) error {
	if c == nil || c.Email == "" || c.CodeHash == "" {
		return errors.New("verification challenge is incomplete")
	}
	ttl := c.ExpiresAt.Sub(l.now())
	if ttl <= 0 {
		return errors.New("verification challenge already expired")
	}

	encoded, err := encodeChallenge(c)
	if err != nil {
		return err
	}

	if err := l.redis.Set(ctx, l.key(c.Email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	c.raw = encoded
	return nil
}

// Get returns the live challenge for email.
func (l *VerificationLedger) Get(ctx context.Context, email string) (*Challenge, error) {
	data, err := l.redis.Get(ctx, l.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}

	c, err := decodeChallenge(data)
	if err != nil {
		// A record we cannot read can never be verified.
		_ = l.redis.Del(ctx, l.key(email)).Err()
		return nil, ErrChallengeNotFound
	}
	if !l.now().Before(c.ExpiresAt) {
		return nil, ErrChallengeNotFound
	}

	c.Email = email
	c.raw = data
	return c, nil
}

// Consume deletes c if it is still the live challenge for its email. It
// returns ErrChallengeNotFound when another caller consumed or superseded it
// first.
func (l *VerificationLedger) Consume(ctx context.Context, c *Challenge) error {
	if c == nil || len(c.raw) == 0 {
		return ErrChallengeNotFound
	}

	res, err := compareAndDeleteLua.Run(ctx, l.redis, []string{l.key(c.Email)}, c.raw).Int()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	if res != 1 {
		return ErrChallengeNotFound
	}
	return nil
}

func encodeChallenge(c *Challenge) ([]byte, error) {
	if len(c.CodeHash) > maxCodeHashLen {
		return nil, errors.New("verification code hash too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, c.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, c.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(c.CodeHash))); err != nil {
		return nil, err
	}
	buf.WriteString(c.CodeHash)

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	var createdAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}

	var hashLen uint16
	if err := binary.Read(reader, binary.BigEndian, &hashLen); err != nil {
		return nil, err
	}
	hash := make([]byte, hashLen)
	if _, err := io.ReadFull(reader, hash); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes in verification record")
	}

	return &Challenge{
		CodeHash:  string(hash),
		CreatedAt: time.UnixMilli(createdAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}, nil
}
