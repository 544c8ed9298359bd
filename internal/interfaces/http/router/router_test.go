package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func perform(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_Setup(t *testing.T) {
	t.Run("mounts groups under the versioned prefix", func(t *testing.T) {
		engine := gin.New()

		stock := NewDomainGroup("stock", "/stock")
		stock.GET("/expiring", ok)

		trade := NewDomainGroup("trade", "/trade")
		trade.POST("/sales-invoices", ok).
			DELETE("/sales-invoices/:id", ok)

		NewRouter(engine, WithAPIVersion("v1")).
			Register(stock).
			Register(trade).
			Setup()

		assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/api/v1/stock/expiring").Code)
		assert.Equal(t, http.StatusOK, perform(engine, http.MethodPost, "/api/v1/trade/sales-invoices").Code)
		assert.Equal(t, http.StatusOK, perform(engine, http.MethodDelete, "/api/v1/trade/sales-invoices/7").Code)
		assert.Equal(t, http.StatusNotFound, perform(engine, http.MethodGet, "/stock/expiring").Code)
	})

	t.Run("defaults to v1", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("system", "/system")
		group.GET("/ping", ok)

		NewRouter(engine).Register(group).Setup()

		assert.Equal(t, http.StatusOK, perform(engine, http.MethodGet, "/api/v1/system/ping").Code)
	})

	t.Run("middleware wraps every mounted route", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("catalog", "/catalog")
		group.GET("/products", ok).
			PUT("/products/:id", ok)

		var seen []string
		NewRouter(engine).
			Use(func(c *gin.Context) {
				seen = append(seen, c.Request.URL.Path)
				c.Next()
			}).
			Register(group).
			Setup()

		perform(engine, http.MethodGet, "/api/v1/catalog/products")
		perform(engine, http.MethodPut, "/api/v1/catalog/products/3")

		assert.Equal(t, []string{
			"/api/v1/catalog/products",
			"/api/v1/catalog/products/3",
		}, seen)
	})

	t.Run("aborting middleware blocks the handler", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("trade", "/trade")
		group.GET("/purchase-invoices", ok)

		NewRouter(engine).
			Use(func(c *gin.Context) {
				c.AbortWithStatus(http.StatusUnauthorized)
			}).
			Register(group).
			Setup()

		assert.Equal(t, http.StatusUnauthorized, perform(engine, http.MethodGet, "/api/v1/trade/purchase-invoices").Code)
	})
}

func TestDomainGroup(t *testing.T) {
	group := NewDomainGroup("catalog", "/catalog")
	assert.Equal(t, "catalog", group.Name())

	group.GET("/a", ok).POST("/b", ok).PUT("/c", ok).DELETE("/d", ok)
	assert.Len(t, group.routes, 4)
	assert.Equal(t, http.MethodPost, group.routes[1].method)
}
