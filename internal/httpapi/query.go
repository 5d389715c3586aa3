package httpapi

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// phoneNumberParam reads phoneNumber from the raw query. A literal "+" in
// the first position is the international prefix; any later "+" is a
// form-encoded space.
func phoneNumberParam(c *gin.Context) string {
	for _, part := range strings.Split(c.Request.URL.RawQuery, "&") {
		k, v, _ := strings.Cut(part, "=")
		if k != "phoneNumber" {
			continue
		}
		return decodePhoneNumber(v)
	}
	return ""
}

func decodePhoneNumber(raw string) string {
	lead := ""
	if strings.HasPrefix(raw, "+") {
		lead, raw = "+", raw[1:]
	}
	raw = strings.ReplaceAll(raw, "+", "%20")
	if s, err := url.PathUnescape(raw); err == nil {
		return lead + s
	}
	return lead + raw
}
