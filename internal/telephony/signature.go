package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"hotline-relay/pkg/logger"

	"github.com/gin-gonic/gin"
)

const SignatureHeader = "X-Twilio-Signature"

// Signature computes Twilio's request signature: HMAC-SHA1 keyed by the auth
// token over the full request URL followed by each POST parameter name and
// value, sorted by name.
// Ref: https://www.twilio.com/docs/usage/security#validating-requests
func Signature(authToken, fullURL string, params url.Values) string {
	var b strings.Builder
	b.WriteString(fullURL)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// RequireSignature rejects webhook requests without a valid signature.
// origin is the public scheme://host[:port] Twilio was configured with.
func RequireSignature(authToken, origin string) gin.HandlerFunc {
	origin = strings.TrimRight(origin, "/")
	return func(c *gin.Context) {
		log := logger.FromGin(c)

		got := c.GetHeader(SignatureHeader)
		if got == "" {
			log.Warn("webhook signature missing")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			log.Warn("webhook form parse failed", "err", err)
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		want := Signature(authToken, origin+c.Request.URL.RequestURI(), c.Request.PostForm)
		if !hmac.Equal([]byte(got), []byte(want)) {
			log.Warn("webhook signature mismatch")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
