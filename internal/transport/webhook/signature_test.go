package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/fsdevblog/credit-ledger/internal/domain"
	"github.com/stretchr/testify/suite"
)

type SignatureTestSuite struct {
	suite.Suite
	secret  string
	payload []byte
	now     time.Time
}

func TestSignatureSuite(t *testing.T) {
	suite.Run(t, new(SignatureTestSuite))
}

func (s *SignatureTestSuite) SetupTest() {
	s.secret = "whsec_test"
	s.payload = []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	s.now = time.Unix(1_700_000_000, 0)
}

func hexHMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *SignatureTestSuite) timestampedHeader(secret string, at time.Time, payload []byte) string {
	t := fmt.Sprintf("%d", at.Unix())
	return fmt.Sprintf("t=%s,v1=%s", t, hexHMAC(secret, append([]byte(t+"."), payload...)))
}

func (s *SignatureTestSuite) TestHexHMAC() {
	valid := hexHMAC(s.secret, s.payload)

	cases := []struct {
		name    string
		secret  string
		payload []byte
		header  string
		wantErr bool
	}{
		{name: "valid", secret: s.secret, payload: s.payload, header: valid},
		{name: "tampered body", secret: s.secret, payload: append([]byte(" "), s.payload...), header: valid,
			wantErr: true},
		{name: "wrong secret", secret: "other", payload: s.payload, header: valid, wantErr: true},
		{name: "empty secret", secret: "", payload: s.payload, header: hexHMAC("", s.payload), wantErr: true},
		{name: "missing header", secret: s.secret, payload: s.payload, header: "", wantErr: true},
		{name: "not hex", secret: s.secret, payload: s.payload, header: "zz", wantErr: true},
		{name: "truncated", secret: s.secret, payload: s.payload, header: valid[:20], wantErr: true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			err := NewHexHMACVerifier(tc.secret).Verify(tc.payload, tc.header)
			if tc.wantErr {
				s.Require().ErrorIs(err, domain.ErrInvalidSignature)
				return
			}
			s.Require().NoError(err)
		})
	}
}

func (s *SignatureTestSuite) TestTimestampedHMAC() {
	cases := []struct {
		name    string
		secret  string
		header  string
		wantErr bool
	}{
		{name: "valid", secret: s.secret, header: s.timestampedHeader(s.secret, s.now, s.payload)},
		{name: "one of several v1", secret: s.secret,
			header: s.timestampedHeader(s.secret, s.now, s.payload) + ",v1=" + hexHMAC("old", s.payload)},
		{name: "within tolerance", secret: s.secret,
			header: s.timestampedHeader(s.secret, s.now.Add(-4*time.Minute), s.payload)},
		{name: "too old", secret: s.secret,
			header: s.timestampedHeader(s.secret, s.now.Add(-6*time.Minute), s.payload), wantErr: true},
		{name: "from the future", secret: s.secret,
			header: s.timestampedHeader(s.secret, s.now.Add(10*time.Minute), s.payload), wantErr: true},
		{name: "wrong secret", secret: s.secret,
			header: s.timestampedHeader("other", s.now, s.payload), wantErr: true},
		{name: "empty secret", secret: "", header: s.timestampedHeader("", s.now, s.payload), wantErr: true},
		{name: "no timestamp", secret: s.secret, header: "v1=" + hexHMAC(s.secret, s.payload), wantErr: true},
		{name: "garbage", secret: s.secret, header: "garbage", wantErr: true},
		{name: "empty", secret: s.secret, header: "", wantErr: true},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			v := NewTimestampedHMACVerifier(tc.secret, DefaultTimestampTolerance)
			v.now = func() time.Time { return s.now }
			err := v.Verify(s.payload, tc.header)
			if tc.wantErr {
				s.Require().ErrorIs(err, domain.ErrInvalidSignature)
				return
			}
			s.Require().NoError(err)
		})
	}
}
