package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
)

const DefaultTimestampTolerance = 5 * time.Minute

// Verifier проверяет подпись тела вебхука. Любая ошибка оборачивает domain.ErrInvalidSignature.
type Verifier interface {
	Verify(payload []byte, header string) error
}

// HexHMACVerifier подпись - hex(HMAC-SHA256(secret, body)), как у крипто процессора.
type HexHMACVerifier struct {
	secret []byte
}

func NewHexHMACVerifier(secret string) *HexHMACVerifier {
	return &HexHMACVerifier{secret: []byte(secret)}
}

func (v *HexHMACVerifier) Verify(payload []byte, header string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: webhook secret is not configured", domain.ErrInvalidSignature)
	}
	signature, err := hex.DecodeString(strings.TrimSpace(header))
	if err != nil || len(signature) == 0 {
		return fmt.Errorf("%w: signature header is missing or not hex", domain.ErrInvalidSignature)
	}
	if !hmac.Equal(signature, sign(v.secret, payload)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// TimestampedHMACVerifier заголовок вида `t=<unix>,v1=<hex>[,v1=<hex>...]`. Подписывается строка
// `<t>.<body>`, подходит любая из v1 подписей. Метка времени не должна отличаться от текущего
// времени больше чем на tolerance.
type TimestampedHMACVerifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewTimestampedHMACVerifier(secret string, tolerance time.Duration) *TimestampedHMACVerifier {
	return &TimestampedHMACVerifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (v *TimestampedHMACVerifier) Verify(payload []byte, header string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: webhook secret is not configured", domain.ErrInvalidSignature)
	}

	var (
		timestamp  string
		signatures [][]byte
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			if sig, err := hex.DecodeString(value); err == nil {
				signatures = append(signatures, sig)
			}
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return fmt.Errorf("%w: malformed signature header", domain.ErrInvalidSignature)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", domain.ErrInvalidSignature)
	}
	if v.tolerance > 0 {
		age := v.now().Sub(time.Unix(unix, 0))
		if age > v.tolerance || age < -v.tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", domain.ErrInvalidSignature)
		}
	}

	signed := make([]byte, 0, len(timestamp)+1+len(payload))
	signed = append(signed, timestamp...)
	signed = append(signed, '.')
	signed = append(signed, payload...)
	expected := sign(v.secret, signed)
	for _, sig := range signatures {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func sign(secret, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return mac.Sum(nil)
}
