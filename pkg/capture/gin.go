package capture

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"

	"faultline/pkg/models"
)

// panicCapturedKey marks a gin context whose panic was already reported, so
// GinReportErrors does not emit a second event for the same request.
const panicCapturedKey = "faultline.panic_captured"

// GinRecovery reports handler panics as runtime errors and aborts the
// request with a 500 response.
func (c *Capturer) GinRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(g *gin.Context, recovered interface{}) {
		b := models.NewErrorPayloadBuilder(models.KindRuntimeError).
			WithName("panic").
			WithMessage(formatRecovered(recovered)).
			WithStack(string(debug.Stack())).
			WithURL(g.Request.URL.String()).
			WithRoute(g.FullPath()).
			WithUserAgent(g.Request.UserAgent()).
			WithMetadataEntry("method", g.Request.Method)
		if id := g.GetString("request_id"); id != "" {
			b = b.WithMetadataEntry("request_id", id)
		}
		g.Set(panicCapturedKey, true)
		c.submit(g.Request.Context(), b)
		c.logger.Errorw("panic recovered",
			"path", g.Request.URL.Path,
			"method", g.Request.Method,
			"panic", recovered,
		)
		g.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal server error",
			"error_code": "INTERNAL_ERROR",
		})
	})
}

// GinReportErrors reports errors attached to the gin context as explicit
// rejections and unexplained 5xx responses as http errors. Register it
// before GinRecovery so its post-handler pass sees the recovered status.
func (c *Capturer) GinReportErrors() gin.HandlerFunc {
	return func(g *gin.Context) {
		g.Next()

		status := g.Writer.Status()
		for _, ginErr := range g.Errors {
			c.submit(g.Request.Context(), models.NewErrorPayloadBuilder(models.KindExplicitRejection).
				WithName(errorName(ginErr.Err)).
				WithMessage(ginErr.Error()).
				WithURL(g.Request.URL.String()).
				WithRoute(g.FullPath()).
				WithUserAgent(g.Request.UserAgent()).
				WithMetadataEntry("method", g.Request.Method).
				WithMetadataEntry("status_code", strconv.Itoa(status)))
		}
		if status >= http.StatusInternalServerError && len(g.Errors) == 0 && !g.GetBool(panicCapturedKey) {
			c.submit(g.Request.Context(), models.NewErrorPayloadBuilder(models.KindHTTPError).
				WithName(http.StatusText(status)).
				WithMessage(fmt.Sprintf("%s %s returned %d", g.Request.Method, g.Request.URL.Path, status)).
				WithURL(g.Request.URL.String()).
				WithRoute(g.FullPath()).
				WithUserAgent(g.Request.UserAgent()).
				WithMetadataEntry("method", g.Request.Method).
				WithMetadataEntry("status_code", strconv.Itoa(status)))
		}
	}
}
