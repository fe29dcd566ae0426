// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/trademark-backend/internal/utils"
)

func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}
	return func(c *gin.Context) {
		lang := defaultLang

		// Handle cases like "ko-KR,ko;q=0.9,en;q=0.8"
		if header := c.GetHeader("Accept-Language"); header != "" {
			first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
			switch strings.ToLower(first) {
			case "ko", "ko-kr", "ko_kr":
				lang = "ko"
			case "en", "en-us", "en-gb":
				lang = "en"
			}
		}

		c.Set(utils.ContextLang, lang)
		c.Next()
	}
}
