package secure

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
)

// Options toggles HTTPS enforcement on top of the always-on security headers.
type Options struct {
	ForceHTTPS  bool
	SSLHost     string
	Development bool
}

// New returns a gin middleware applying standard browser security headers.
func New(opts Options) gin.HandlerFunc {
	mw := secure.New(secure.Options{
		SSLRedirect:          opts.ForceHTTPS,
		SSLHost:              opts.SSLHost,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:           stsSeconds(opts.ForceHTTPS),
		STSIncludeSubdomains: opts.ForceHTTPS,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
		BrowserXssFilter:     true,
		ReferrerPolicy:       "strict-origin-when-cross-origin",
		IsDevelopment:        opts.Development,
	})

	return func(c *gin.Context) {
		if err := mw.Process(c.Writer, c.Request); err != nil {
			// Process already wrote the redirect or rejection.
			c.Abort()
			return
		}
		c.Next()
	}
}

func stsSeconds(force bool) int64 {
	if !force {
		return 0
	}
	return 31536000
}
