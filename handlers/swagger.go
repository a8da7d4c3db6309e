package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger exposes a minimal Swagger UI plus the OpenAPI document.
// - GET /swagger/index.html -> small HTML page that loads the JSON
// - GET /swagger/doc.json   -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>hanabira — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "hanabira-api", "version": "v0.1.0" },
  "paths": {
    "/auth/login": {
      "post": {
        "summary": "Exchange authorization code / login",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"mode":{"type":"string"},"username":{"type":"string"},"password":{"type":"string"},"code":{"type":"string"},"redirect_uri":{"type":"string"}}}}}},
        "responses": { "200": { "description": "tokens returned" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Logout and invalidate refresh token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Get user info with balances", "responses": { "200": { "description": "user" } } }
    },
    "/api/v1/petals/balance": {
      "get": { "summary": "Current petal balance", "responses": { "200": { "description": "balance" }, "401": { "description": "unauthenticated" } } }
    },
    "/api/v1/petals/earn": {
      "post": {
        "summary": "Grant petals for a capped source",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["amount","reason"],"properties":{"amount":{"type":"integer"},"reason":{"type":"string"},"metadata":{"type":"object"}}}}}},
        "responses": { "200": { "description": "new balance" }, "400": { "description": "INVALID_AMOUNT | UNKNOWN_REASON | AMOUNT_EXCEEDS_CAP | DAILY_CAP_EXCEEDED" } }
      }
    },
    "/api/v1/petals/spend": {
      "post": {
        "summary": "Spend petals",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["amount","reason"],"properties":{"amount":{"type":"integer"},"reason":{"type":"string"},"metadata":{"type":"object"}}}}}},
        "responses": { "200": { "description": "new balance" }, "400": { "description": "INSUFFICIENT_FUNDS | INVALID_AMOUNT" } }
      }
    },
    "/api/v1/petals/history": {
      "get": { "summary": "Ledger entries, newest first", "responses": { "200": { "description": "entries" } } }
    },
    "/api/v1/runes/balance": {
      "get": { "summary": "Current rune balance", "responses": { "200": { "description": "balance" } } }
    },
    "/api/v1/shop/products": {
      "get": { "summary": "Active product catalog", "responses": { "200": { "description": "products" } } }
    },
    "/api/v1/shop/purchase": {
      "post": { "summary": "Buy a product with petals", "responses": { "200": { "description": "new balance" }, "400": { "description": "INSUFFICIENT_FUNDS" } } }
    },
    "/api/v1/soapstone": {
      "post": { "summary": "Leave a templated message", "responses": { "200": { "description": "message" } } },
      "get": { "summary": "List messages in a zone", "responses": { "200": { "description": "messages" } } }
    },
    "/api/v1/soapstone/{id}/appraise": {
      "post": { "summary": "Appraise a message", "responses": { "200": { "description": "message" }, "404": { "description": "not found" } } }
    },
    "/api/v1/gamertag": {
      "get": { "summary": "Generate a gamertag, optionally from a seed", "responses": { "200": { "description": "gamertag" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
