package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminEngine(logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminRequestLogger(logger, "mgmtd.mw"), AdminMetrics("mgmtd.mw"))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/mbeans/:name", ok)
	r.GET("/mbeans/:name/attributes/:attr", ok)
	r.POST("/mbeans/:name/operations/:op", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	return r
}

func TestAdminMetricsCountsMBeanCalls(t *testing.T) {
	r := newAdminEngine(zerolog.Nop())
	opCalls := mbeanCalls.WithLabelValues("mgmtd.mw", "operation", "reset", "404")
	attrCalls := mbeanCalls.WithLabelValues("mgmtd.mw", "attribute", "Size", "200")
	opBefore := testutil.ToFloat64(opCalls)
	attrBefore := testutil.ToFloat64(attrCalls)
	healthBefore := testutil.ToFloat64(httpRequests.WithLabelValues("mgmtd.mw", "GET", "/health", "200"))

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/mbeans/mgmt:type=kv-store/operations/reset", nil),
		httptest.NewRequest(http.MethodGet, "/mbeans/mgmt:type=kv-store/attributes/Size", nil),
		httptest.NewRequest(http.MethodGet, "/health", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, opBefore+1, testutil.ToFloat64(opCalls))
	assert.Equal(t, attrBefore+1, testutil.ToFloat64(attrCalls))
	assert.Equal(t, healthBefore+1, testutil.ToFloat64(httpRequests.WithLabelValues("mgmtd.mw", "GET", "/health", "200")))
}

func TestAdminRequestLoggerNamesTheMBean(t *testing.T) {
	var buf bytes.Buffer
	r := newAdminEngine(zerolog.New(&buf).Level(zerolog.DebugLevel))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mbeans/mgmt:type=kv-store/operations/reset", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	line := buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.Contains(t, line, `"service":"mgmtd.mw"`)
	assert.Contains(t, line, `"route":"/mbeans/:name/operations/:op"`)
	assert.Contains(t, line, `"mbean":"mgmt:type=kv-store"`)
	assert.Contains(t, line, `"call":"operation"`)
	assert.Contains(t, line, `"member":"reset"`)
	assert.Contains(t, line, `"message":"admin request"`)
}

func TestMBeanCallOfIgnoresOtherRoutes(t *testing.T) {
	var buf bytes.Buffer
	r := newAdminEngine(zerolog.New(&buf).Level(zerolog.DebugLevel))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotContains(t, buf.String(), `"mbean"`)

	buf.Reset()
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Contains(t, buf.String(), `"route":"unmatched"`)
}
