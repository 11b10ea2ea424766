package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"affiliate_portal_backend/platform/apperr"
	"affiliate_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries "t=<unix seconds>,v1=<hex hmac-sha256>" over "<t>.<body>".
const SignatureHeader = "Scheduling-Webhook-Signature"

const (
	signatureTolerance = 5 * time.Minute
	maxBodyBytes       = 1 << 20
)

var errBadSignature = errors.New("invalid webhook signature")

// Sign builds a signature header value. Used by tests and replay tooling.
func Sign(key string, ts time.Time, body []byte) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return "t=" + t + ",v1=" + mac(key, t, body)
}

func mac(key, t string, body []byte) string {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(t))
	h.Write([]byte("."))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks header against body at now.
func VerifySignature(key, header string, body []byte, now time.Time) error {
	var t, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			t = v
		case "v1":
			sig = v
		}
	}
	if t == "" || sig == "" {
		return errBadSignature
	}

	sec, err := strconv.ParseInt(t, 10, 64)
	if err != nil {
		return errBadSignature
	}
	age := now.Sub(time.Unix(sec, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return errBadSignature
	}

	if !hmac.Equal([]byte(mac(key, t, body)), []byte(strings.ToLower(sig))) {
		return errBadSignature
	}
	return nil
}

// SignatureMiddleware rejects unsigned or tampered deliveries with 401. An
// empty key disables verification for local development.
func SignatureMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if err := VerifySignature(key, c.GetHeader(SignatureHeader), body, time.Now()); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httpkit.ErrorResponse{Error: err.Error(), Code: apperr.CodeUnauthorized})
			return
		}
		c.Next()
	}
}
